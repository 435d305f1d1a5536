package rediskey

import "fmt"

// Marketplace keys (global convention across services)
const (
	SequencePrefix     = "seq"
	NotificationPrefix = "notifications"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSequenceKey returns "seq:{name}"
func BuildSequenceKey(name string) string {
	return NamespaceKey(SequencePrefix, name)
}

// BuildNotificationChannel returns "notifications:{userID}"
func BuildNotificationChannel(userID string) string {
	return NamespaceKey(NotificationPrefix, userID)
}
