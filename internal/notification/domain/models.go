// Package domain holds in-app notifications and registered push devices.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID        int64             `gorm:"column:notification_id;primaryKey"`
	UserID    int64             `gorm:"column:user_id;not null;index"`
	UserType  string            `gorm:"column:user_type;type:text;not null"`
	Title     string            `gorm:"column:title;type:text;not null"`
	Body      string            `gorm:"column:body;type:text;not null"`
	URL       *string           `gorm:"column:url;type:text"`
	IsRead    bool              `gorm:"column:is_read;not null;default:false"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (Notification) TableName() string { return "notifications" }

// PushSubscription is one browser or device registered for web push.
type PushSubscription struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	Endpoint  string    `gorm:"column:endpoint;type:text;not null"`
	P256dh    string    `gorm:"column:p256dh;type:text;not null"`
	Auth      string    `gorm:"column:auth;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (PushSubscription) TableName() string { return "push_subscriptions" }

type Recipient struct {
	UserID   int64
	UserType string
}

type Message struct {
	Title    string
	Body     string
	URL      string
	Metadata map[string]any
}

// PushPayload is the JSON body delivered to push endpoints.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type NotifyResult struct {
	NotificationID int64
	Delivered      int
	Failed         int
	Pruned         int
	Emailed        bool
}
