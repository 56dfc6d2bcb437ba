package handlers

import (
	"TalkTime/service/chat"
	"TalkTime/tools/safe"
)

// PresenceBroadcaster 用户首个连接上线、最后一个连接下线时通知所有在线用户
func PresenceBroadcaster(reg *chat.Registry, sender *chat.Sender) chat.PresenceListener {
	return func(ev chat.PresenceEvent) {
		if ev.Online && ev.Remaining != 1 {
			return
		}
		if !ev.Online && ev.Remaining != 0 {
			return
		}
		f := chat.NewFrame(chat.EventOnlineOffline, chat.OnlineOffline{
			UID:    ev.UserID,
			Online: ev.Online,
			At:     ev.At.UnixMilli(),
		})
		// 监听器在注册表调用方的协程里执行，广播放到后台
		safe.Go("presence.broadcast", func() {
			var conns []chat.Conn
			reg.Range(func(c chat.Conn, md *chat.Metadata) bool {
				if uid, ok := md.UserID(); ok && uid != ev.UserID {
					conns = append(conns, c)
				}
				return true
			})
			sender.Deliver(conns, f)
		})
	}
}

// Fanout 依次调用多个监听器
func Fanout(ls ...chat.PresenceListener) chat.PresenceListener {
	return func(ev chat.PresenceEvent) {
		for _, l := range ls {
			if l != nil {
				l(ev)
			}
		}
	}
}

