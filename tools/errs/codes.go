package errs

const (
	ServerInternalError = 500
	ArgsError           = 1001
	UnsupportedType     = 1002
	ValidationError     = 1003
	NotLoggedIn         = 1004
	TooFrequent         = 1005

	UserNotFound    = 1101
	TokenInvalid    = 1102
	CredentialError = 1103
	ProviderError   = 1104
)

var (
	ErrInternal        = NewCodeError(ServerInternalError, "internal error")
	ErrArgs            = NewCodeError(ArgsError, "invalid arguments")
	ErrUnsupportedType = NewCodeError(UnsupportedType, "unsupported message type")
	ErrValidation      = NewCodeError(ValidationError, "validation failed")
	ErrNotLoggedIn     = NewCodeError(NotLoggedIn, "not logged in")
	ErrTooFrequent     = NewCodeError(TooFrequent, "too many requests")

	// ErrUserNotFound 登录流程中用户主档缺失：数据不一致，归属内部错误
	ErrUserNotFound = NewCodeError(UserNotFound, "user not found")
	ErrTokenInvalid = NewCodeError(TokenInvalid, "token invalid")
	ErrCredential   = NewCodeError(CredentialError, "credential service failure")
	ErrProvider     = NewCodeError(ProviderError, "identity provider failure")
)

func init() {
	_ = DefaultCodeRelation.Add(ServerInternalError, UserNotFound)
	_ = DefaultCodeRelation.Add(ServerInternalError, CredentialError)
	_ = DefaultCodeRelation.Add(ServerInternalError, ProviderError)
}
