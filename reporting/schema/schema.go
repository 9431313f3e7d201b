package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Event struct {
	Id          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"size:255;not null"`
	IsValid     bool   `gorm:"not null"`

	// At most one of these is present for a given event, see Variant.
	Ring *RingEvent `gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
	Box  *BoxEvent  `gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
	Geo  *GeoEvent  `gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
}

func (Event) TableName() string {
	return "events"
}

type RingEvent struct {
	EventId   uint    `gorm:"primaryKey;autoIncrement:false"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
	Radius    float64 `gorm:"not null"`
}

type BoxEvent struct {
	EventId uint    `gorm:"primaryKey;autoIncrement:false"`
	MaxLat  float64 `gorm:"not null"`
	MinLat  float64 `gorm:"not null"`
	MaxLon  float64 `gorm:"not null"`
	MinLon  float64 `gorm:"not null"`
}

type GeoEvent struct {
	EventId  uint    `gorm:"primaryKey;autoIncrement:false"`
	Country  *string `gorm:"size:255"`
	Area     *string `gorm:"size:255"`
	Subarea  *string `gorm:"size:255"`
	Subarea2 *string `gorm:"size:255"`
}

type EventGroup struct {
	Id   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`

	Created time.Time `gorm:"autoCreateTime"`
	Updated time.Time `gorm:"autoUpdateTime"`

	Members []EventGroupMember `gorm:"foreignKey:EventGroupId"`
}

type EventGroupMember struct {
	EventGroupId uint `gorm:"column:eventgroup_id;primaryKey;autoIncrement:false"`
	EventId      uint `gorm:"primaryKey;autoIncrement:false;index"`

	EventGroup *EventGroup `gorm:"foreignKey:EventGroupId;constraint:OnDelete:CASCADE"`
	Event      *Event      `gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
}

func (EventGroupMember) TableName() string {
	return "_jt_eventgroup_events"
}

type Report struct {
	Id    uint    `gorm:"primaryKey"`
	Name  string  `gorm:"size:255;not null"`
	Peril string  `gorm:"size:100;not null;index"`
	Dr    float64 `gorm:"not null"`

	EventGroupId uint        `gorm:"not null;index"`
	EventGroup   *EventGroup `gorm:"constraint:OnDelete:RESTRICT"`

	Cron            *string `gorm:"size:50"`
	Cob             *string `gorm:"size:50"`
	LossPerspective string  `gorm:"size:20;not null"`

	IsApplyCalibration    bool `gorm:"not null"`
	IsApplyInflation      bool `gorm:"not null"`
	IsTagOutwardsPtns     bool `gorm:"not null"`
	IsLocationBreakout    bool `gorm:"not null"`
	IsIgnoreMissingLatLon bool `gorm:"not null"`

	LocationBreakoutMaxEvents    int    `gorm:"not null"`
	LocationBreakoutMaxLocations int    `gorm:"not null"`
	Priority                     string `gorm:"size:50;not null"`
	Ncores                       int    `gorm:"not null"`

	GrossNodeId              *int
	NetNodeId                *int
	RollupContextId          *int
	DynamicRingLossThreshold *int
	BlastRadius              *float64
	NoOverlapRadius          *float64

	IsValid bool      `gorm:"not null"`
	Created time.Time `gorm:"autoCreateTime;index"`
	Updated time.Time `gorm:"autoUpdateTime"`
}

type ReportModifier struct {
	Id       uint            `gorm:"primaryKey"`
	AsAtDate *datatypes.Date `gorm:"index"`
	FxDate   *datatypes.Date
}

// ReportModifierLink is the join between reports and modifiers. Neither side
// owns it, the (report, modifier) pair is the primary key.
type ReportModifierLink struct {
	ReportModifierId uint `gorm:"column:reportmodifier_id;primaryKey;autoIncrement:false;index"`
	ReportId         uint `gorm:"primaryKey;autoIncrement:false;index"`

	Report         *Report         `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE"`
	ReportModifier *ReportModifier `gorm:"foreignKey:ReportModifierId;constraint:OnDelete:CASCADE"`
}

func (ReportModifierLink) TableName() string {
	return "_jt_report_modifiers_reports"
}

type Job struct {
	Id uint `gorm:"primaryKey"`

	ReportId uint    `gorm:"not null;index"`
	Report   *Report `gorm:"constraint:OnDelete:CASCADE"`

	ReportModifierId *uint           `gorm:"index"`
	ReportModifier   *ReportModifier `gorm:"constraint:OnDelete:CASCADE"`

	FireantJobid int `gorm:"column:fireant_jobid;not null"`

	Created time.Time `gorm:"autoCreateTime;index"`
	Updated time.Time `gorm:"autoUpdateTime"`
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:150;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null"`
}

// Tables lists every entity in creation order, this is what AutoMigrate is run
// with by the server, the migration binary and the tests.
var Tables = []interface{}{
	&User{},
	&Event{}, &RingEvent{}, &BoxEvent{}, &GeoEvent{},
	&EventGroup{}, &EventGroupMember{},
	&Report{}, &ReportModifier{}, &ReportModifierLink{},
	&Job{},
}
