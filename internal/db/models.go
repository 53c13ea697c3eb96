package db

import (
	"encoding/json"
	"time"
)

// Fighter maps mma.fighters, the canonical person record. The uniqueness of
// a real person across rows is enforced procedurally by the matcher and the
// pending-review workflow, not by a database constraint.
type Fighter struct {
	FighterID        int64      `gorm:"column:fighter_id;primaryKey;autoIncrement"`
	FighterUUID      string     `gorm:"column:fighter_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FirstName        string     `gorm:"column:first_name;type:text;not null"`
	LastName         string     `gorm:"column:last_name;type:text;not null;default:''"`
	Nickname         *string    `gorm:"column:nickname;type:text"`
	Nationality      *string    `gorm:"column:nationality;type:text"`
	DateOfBirth      *time.Time `gorm:"column:date_of_birth;type:date"`
	Wins             int        `gorm:"column:wins;type:integer;not null;default:0"`
	Losses           int        `gorm:"column:losses;type:integer;not null;default:0"`
	Draws            int        `gorm:"column:draws;type:integer;not null;default:0"`
	NoContests       int        `gorm:"column:no_contests;type:integer;not null;default:0"`
	WinsByKO         int        `gorm:"column:wins_by_ko;type:integer;not null;default:0"`
	WinsBySubmission int        `gorm:"column:wins_by_submission;type:integer;not null;default:0"`
	WinsByDecision   int        `gorm:"column:wins_by_decision;type:integer;not null;default:0"`
	WikipediaURL     *string    `gorm:"column:wikipedia_url;type:text"`
	DataSource       string     `gorm:"column:data_source;type:text;not null;default:''"`
	DataQualityScore float64    `gorm:"column:data_quality_score;type:double precision;not null;default:0"`
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Fighter) TableName() string { return "mma.fighters" }

// FighterNameVariation maps mma.fighter_name_variations, the alias edge.
// Rows are append-only: created when a mention's literal name differs from
// the canonical spelling, never updated.
type FighterNameVariation struct {
	VariationID    int64         `gorm:"column:variation_id;primaryKey;autoIncrement"`
	VariationUUID  string        `gorm:"column:variation_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FighterID      int64         `gorm:"column:fighter_id;type:bigint;not null"`
	FirstVariation string        `gorm:"column:first_variation;type:text;not null;default:''"`
	LastVariation  string        `gorm:"column:last_variation;type:text;not null;default:''"`
	FullVariation  string        `gorm:"column:full_variation;type:text;not null"`
	VariationType  VariationType `gorm:"column:variation_type;type:text;not null;default:alias"`
	Source         string        `gorm:"column:source;type:text;not null;default:''"`
	CreatedAt      time.Time     `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (FighterNameVariation) TableName() string { return "mma.fighter_name_variations" }

// PotentialMatch is one candidate duplicate attached to a pending fighter.
type PotentialMatch struct {
	FighterID   int64   `json:"fighter_id"`
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Nationality string  `json:"nationality,omitempty"`
	Record      string  `json:"record,omitempty"`
}

// PendingFighter maps mma.pending_fighters, a staged mention awaiting review.
type PendingFighter struct {
	PendingFighterID int64           `gorm:"column:pending_fighter_id;primaryKey;autoIncrement"`
	PendingUUID      string          `gorm:"column:pending_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FirstName        string          `gorm:"column:first_name;type:text;not null"`
	LastName         string          `gorm:"column:last_name;type:text;not null;default:''"`
	Nickname         *string         `gorm:"column:nickname;type:text"`
	Nationality      *string         `gorm:"column:nationality;type:text"`
	WeightClass      *string         `gorm:"column:weight_class;type:text"`
	RecordText       *string         `gorm:"column:record_text;type:text"`
	SourceKind       SourceKind      `gorm:"column:source_kind;type:text;not null;default:scraper"`
	SourceEventName  *string         `gorm:"column:source_event_name;type:text"`
	SourceURL        *string         `gorm:"column:source_url;type:text"`
	RawPayload       json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	DetectedLanguage *string         `gorm:"column:detected_language;type:text"`
	Status           PendingStatus   `gorm:"column:status;type:text;not null;default:pending"`
	ConfidenceLevel  ConfidenceLevel `gorm:"column:confidence_level;type:text;not null;default:medium"`
	PotentialMatches json.RawMessage `gorm:"column:potential_matches;type:jsonb"`
	MatchedFighterID *int64          `gorm:"column:matched_fighter_id;type:bigint"`
	CreatedFighterID *int64          `gorm:"column:created_fighter_id;type:bigint"`
	ReviewedBy       *string         `gorm:"column:reviewed_by;type:text"`
	ReviewedAt       *time.Time      `gorm:"column:reviewed_at;type:timestamptz"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PendingFighter) TableName() string { return "mma.pending_fighters" }

// Event maps mma.events.
type Event struct {
	EventID      int64     `gorm:"column:event_id;primaryKey;autoIncrement"`
	EventUUID    string    `gorm:"column:event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Name         string    `gorm:"column:name;type:text;not null"`
	EventDate    time.Time `gorm:"column:event_date;type:date;not null"`
	Location     *string   `gorm:"column:location;type:text"`
	Promotion    *string   `gorm:"column:promotion;type:text"`
	WikipediaURL *string   `gorm:"column:wikipedia_url;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Event) TableName() string { return "mma.events" }

// Fight maps mma.fights, the authoritative two-sided bout record.
type Fight struct {
	FightID      int64      `gorm:"column:fight_id;primaryKey;autoIncrement"`
	FightUUID    string     `gorm:"column:fight_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	EventID      int64      `gorm:"column:event_id;type:bigint;not null"`
	Fighter1ID   int64      `gorm:"column:fighter1_id;type:bigint;not null"`
	Fighter2ID   int64      `gorm:"column:fighter2_id;type:bigint;not null"`
	WinnerID     *int64     `gorm:"column:winner_id;type:bigint"`
	ResultKind   ResultKind `gorm:"column:result_kind;type:text;not null;default:win"`
	MethodKind   MethodKind `gorm:"column:method_kind;type:text;not null;default:other"`
	MethodDetail *string    `gorm:"column:method_detail;type:text"`
	Round        *int       `gorm:"column:round;type:integer"`
	TimeStr      *string    `gorm:"column:time_str;type:text"`
	WeightClass  *string    `gorm:"column:weight_class;type:text"`
	IsTitleFight bool       `gorm:"column:is_title_fight;type:boolean;not null;default:false"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Fight) TableName() string { return "mma.fights" }

// FightHistory maps mma.fight_histories, one fighter's one-sided narrative
// record of a bout as scraped or hand-entered. Reconciliation later links it
// to an authoritative Fight and syncs the denormalized fields.
type FightHistory struct {
	FightHistoryID    int64           `gorm:"column:fight_history_id;primaryKey;autoIncrement"`
	HistoryUUID       string          `gorm:"column:history_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FighterID         int64           `gorm:"column:fighter_id;type:bigint;not null"`
	FightOrder        int             `gorm:"column:fight_order;type:integer;not null"`
	Result            FightResult     `gorm:"column:result;type:text;not null;default:unknown"`
	OpponentName      string          `gorm:"column:opponent_name;type:text;not null"`
	OpponentFighterID *int64          `gorm:"column:opponent_fighter_id;type:bigint"`
	MethodKind        MethodKind      `gorm:"column:method_kind;type:text;not null;default:other"`
	MethodDetail      *string         `gorm:"column:method_detail;type:text"`
	EventName         *string         `gorm:"column:event_name;type:text"`
	EventDate         *time.Time      `gorm:"column:event_date;type:date"`
	Location          *string         `gorm:"column:location;type:text"`
	EventID           *int64          `gorm:"column:event_id;type:bigint"`
	FightID           *int64          `gorm:"column:fight_id;type:bigint"`
	Round             *int            `gorm:"column:round;type:integer"`
	TimeStr           *string         `gorm:"column:time_str;type:text"`
	WeightClass       *string         `gorm:"column:weight_class;type:text"`
	IsTitleFight      bool            `gorm:"column:is_title_fight;type:boolean;not null;default:false"`
	DataSource        string          `gorm:"column:data_source;type:text;not null;default:''"`
	DataQualityScore  float64         `gorm:"column:data_quality_score;type:double precision;not null;default:0"`
	Reconciliation    json.RawMessage `gorm:"column:reconciliation;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (FightHistory) TableName() string { return "mma.fight_histories" }

// Reviewer maps mma.reviewers, the accounts allowed to work the pending queue.
type Reviewer struct {
	ReviewerID   int64     `gorm:"column:reviewer_id;primaryKey;autoIncrement"`
	ReviewerUUID string    `gorm:"column:reviewer_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Username     string    `gorm:"column:username;type:text;not null;unique"`
	PasswordHash string    `gorm:"column:password_hash;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Reviewer) TableName() string { return "mma.reviewers" }

// ReviewerSession maps mma.reviewer_sessions.
type ReviewerSession struct {
	SessionID  int64     `gorm:"column:session_id;primaryKey;autoIncrement"`
	Token      string    `gorm:"column:token;type:text;not null;unique"`
	ReviewerID int64     `gorm:"column:reviewer_id;type:bigint;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ReviewerSession) TableName() string { return "mma.reviewer_sessions" }

func autoMigrateModels() []any {
	return []any{
		&Fighter{},
		&FighterNameVariation{},
		&PendingFighter{},
		&Event{},
		&Fight{},
		&FightHistory{},
		&Reviewer{},
		&ReviewerSession{},
	}
}
