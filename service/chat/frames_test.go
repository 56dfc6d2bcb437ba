package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestAndDecodeData(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":3,"data":{"token":"abc"}}`))
	require.NoError(t, err)
	assert.Equal(t, ReqAuthorize, req.Type)

	body, err := DecodeData[AuthorizeReq](req)
	require.NoError(t, err)
	assert.Equal(t, "abc", body.Token)
}

func TestDecodeDataStringEncoded(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":3,"data":"{\"token\":\"xyz\"}"}`))
	require.NoError(t, err)

	body, err := DecodeData[AuthorizeReq](req)
	require.NoError(t, err)
	assert.Equal(t, "xyz", body.Token)
}

func TestDecodeDataEmpty(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":1}`))
	require.NoError(t, err)
	body, err := DecodeData[AuthorizeReq](req)
	require.NoError(t, err)
	assert.Empty(t, body.Token)
}

func TestParseRequestMalformed(t *testing.T) {
	_, err := ParseRequest([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestFrameMarshalOmitsEmptyData(t *testing.T) {
	b, err := InvalidateTokenFrame().Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":6}`, string(b))

	b, err = LoginFailureFrame("provider").Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":100,"data":{"reason":"provider"}}`, string(b))
}
