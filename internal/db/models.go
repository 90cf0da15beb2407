package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Interest preference values a profile can declare.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	InterestBoth = "both"
)

// StringList stores a deduplicatable tag list as a JSON column so the same
// model works on MySQL and the SQLite test databases.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

// User is the account record. Never hard-deleted; no deletion endpoint exists.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile  *Profile      `gorm:"constraint:OnDelete:CASCADE"`
	Location *UserLocation `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile is owned by exactly one account and created with it.
type Profile struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"uniqueIndex;not null"`
	FullName  string `gorm:"size:128;not null"`
	Bio       string `gorm:"type:text"`
	Birthdate time.Time
	Gender    string `gorm:"size:16"`
	// InterestIn is the gender(s) the user wants to see: male, female or both.
	InterestIn   string     `gorm:"size:16"`
	AgeMin       int        `gorm:"default:18"`
	AgeMax       int        `gorm:"default:100"`
	InterestTags StringList `gorm:"type:json"`

	Images []ProfileImage `gorm:"constraint:OnDelete:CASCADE"`
}

// ProfileImage occupies a position slot 0..K. Uploading to an occupied slot
// replaces the prior image, including its external storage object.
type ProfileImage struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProfileID uint64 `gorm:"index;not null"`
	URL       string `gorm:"size:512;not null"`
	// StorageKey is the external store reference used for deletion.
	StorageKey string `gorm:"size:256;not null"`
	Position   int    `gorm:"not null"`
}

// UserLocation holds at most one coordinate pair per account, upserted.
type UserLocation struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"uniqueIndex;not null"`
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}

// Swipe records a like/pass decision. Duplicates per pair are permitted; the
// auto-increment id doubles as the monotonic tie-break for "most recent".
type Swipe struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	LikerID   uint64 `gorm:"index:idx_swipes_liker;not null"`
	LikedID   uint64 `gorm:"index;not null"`
	IsLike    bool   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is the canonical mutual-like record: the pair is stored sorted by id
// ascending and the composite unique index guarantees at most one row per
// pair under concurrent reciprocal swipes.
type Match struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64 `gorm:"uniqueIndex:idx_match_pair;not null"`
	User2ID   uint64 `gorm:"uniqueIndex:idx_match_pair;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Block is a directed blocker -> blocked record. Not reversible.
type Block struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	BlockerID uint64 `gorm:"index;not null"`
	BlockedID uint64 `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is append-only except for bulk is_read flips and the bulk deletes
// triggered by block/undo cleanup.
type Message struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64 `gorm:"index;not null"`
	ReceiverID uint64 `gorm:"index;not null"`
	Content    string `gorm:"type:text;not null"`
	Timestamp  time.Time `gorm:"autoCreateTime"`
	IsRead     bool      `gorm:"default:false"`
}

// PasswordReset holds at most one live token per email; issuing a new token
// deletes any prior rows for that email.
type PasswordReset struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"index;size:128;not null"`
	Token     string `gorm:"size:16;not null"`
	ExpiresAt time.Time
}
