package models

import "time"

// TimestampLayout is the wire format of timestamps in alert listings.
const TimestampLayout = "2006-01-02 15:04:05"

// AlertEvent is a triggered alert as produced by the capture client. It only
// lives until the upload completes or fails.
type AlertEvent struct {
	AlertText  string
	MenCount   int
	WomenCount int
	Timestamp  time.Time
	Image      []byte // JPEG, may be empty
}

// Alert is the backend's stored record of one alert event. It corresponds to
// the 'alerts' table (gorm) and the alerts collection (mongo).
type Alert struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	AlertText  string    `gorm:"not null" json:"alert_text" bson:"alert_text"`
	MenCount   int       `gorm:"not null" json:"men_count" bson:"men_count"`
	WomenCount int       `gorm:"not null" json:"women_count" bson:"women_count"`
	Timestamp  time.Time `gorm:"not null;index:idx_alerts_order,priority:1" json:"timestamp" bson:"timestamp"`

	ImageRef *string `gorm:"" json:"image_ref,omitempty" bson:"image_ref,omitempty"` // store key, nil when no image was kept
	ImageURL *string `gorm:"" json:"image_url,omitempty" bson:"image_url,omitempty"` // URL handed to readers

	CreatedAt int64 `gorm:"not null;index:idx_alerts_order,priority:2" json:"created_at" bson:"created_at"` // Unix nanoseconds, tie breaker
}

// TableName explicitly sets the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}

// AlertView is the JSON shape served by GET /alerts/latest.
type AlertView struct {
	ID         string  `json:"id,omitempty"`
	AlertText  string  `json:"alert_text"`
	MenCount   int     `json:"men_count"`
	WomenCount int     `json:"women_count"`
	Timestamp  string  `json:"timestamp"`
	ImageURL   *string `json:"image_url"`
}

// View converts the stored record to its wire shape.
func (a Alert) View() AlertView {
	return AlertView{
		ID:         a.ID,
		AlertText:  a.AlertText,
		MenCount:   a.MenCount,
		WomenCount: a.WomenCount,
		Timestamp:  a.Timestamp.UTC().Format(TimestampLayout),
		ImageURL:   a.ImageURL,
	}
}

// Submission statuses returned by POST /alert.
const (
	SubmitStatusOK       = "ok"
	SubmitStatusDegraded = "degraded"
)

// SubmitResponse is the body returned by POST /alert. Saved reports whether the
// alert made it into the log; Durable whether that log survives a restart.
type SubmitResponse struct {
	Status   string  `json:"status"`
	Saved    bool    `json:"saved"`
	Durable  bool    `json:"durable"`
	ID       string  `json:"id,omitempty"`
	ImageURL *string `json:"image_url"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status               string `json:"status"`
	Store                string `json:"store"`
	StoreOK              bool   `json:"store_ok"`
	ImageStore           string `json:"image_store"`
	MongoConnected       bool   `json:"mongo_connected"`
	CloudinaryConfigured bool   `json:"cloudinary_configured"`
}
