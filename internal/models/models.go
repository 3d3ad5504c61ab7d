package models

import (
	"math"
	"time"
)

// CategoryDrive is the reserved resource category for files imported from a
// Google Drive folder.
const CategoryDrive = "Google Drive"

// Setting keys remembered between runs.
const (
	SettingDriveClientID    = "driveClientId"
	SettingDriveFolderInput = "driveFolderInput"
	SettingThemePreset      = "themePreset"
	SettingThemeCustom      = "themeCustom"
	SettingLastUpdatedAt    = "lastUpdatedAt"
)

// TimeLayout is the timestamp format used for every stored record.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Resource is a study resource, optionally backed by an attachment. Resources
// imported from Drive carry the remote identity and folder path.
type Resource struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Category         string `json:"category"`
	FileID           string `json:"fileId,omitempty"`
	FileName         string `json:"fileName,omitempty"`
	SourceFileID     string `json:"driveFileId,omitempty"`
	Path             string `json:"drivePath,omitempty"`
	RemoteModifiedAt string `json:"driveModifiedTime,omitempty"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// IsRemote reports whether the resource came from a Drive import.
func (r Resource) IsRemote() bool {
	return r.Category == CategoryDrive
}

// Speech roles in the world schools format.
const (
	RoleFirstProposition  = "First Proposition"
	RoleSecondProposition = "Second Proposition"
	RoleThirdProposition  = "Third Proposition"
	RoleFirstOpposition   = "First Opposition"
	RoleSecondOpposition  = "Second Opposition"
	RoleThirdOpposition   = "Third Opposition"
	RoleReply             = "Reply"
)

// SpeechRoles lists every accepted speech role.
var SpeechRoles = []string{
	RoleFirstProposition, RoleSecondProposition, RoleThirdProposition,
	RoleFirstOpposition, RoleSecondOpposition, RoleThirdOpposition,
	RoleReply,
}

// Speech is a practice speech with optional attachment.
type Speech struct {
	ID        string `json:"id"`
	Motion    string `json:"motion"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Notes     string `json:"notes"`
	FileID    string `json:"fileId,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Skill score bounds.
const (
	MinScore = 1
	MaxScore = 10
)

// Skill is a single self-assessment of one skill.
type Skill struct {
	ID        string  `json:"id"`
	Skill     string  `json:"skill"`
	Score     float64 `json:"score"`
	Target    string  `json:"target"`
	CreatedAt string  `json:"createdAt"`
}

// ContentScores are the sub-scores of the content category.
type ContentScores struct {
	Analysis int `json:"analysis"`
	Evidence int `json:"evidence"`
	Clash    int `json:"clash"`
}

// StyleScores are the sub-scores of the style category.
type StyleScores struct {
	Clarity    int `json:"clarity"`
	Persuasion int `json:"persuasion"`
	Delivery   int `json:"delivery"`
}

// StrategyScores are the sub-scores of the strategy category.
type StrategyScores struct {
	Framing        int `json:"framing"`
	Weighing       int `json:"weighing"`
	TimeManagement int `json:"timeManagement"`
}

// Subcategories holds the nine sub-scores an evaluation is derived from.
type Subcategories struct {
	Content  ContentScores  `json:"content"`
	Style    StyleScores    `json:"style"`
	Strategy StrategyScores `json:"strategy"`
}

// Values returns all nine sub-scores in a fixed order.
func (s Subcategories) Values() []int {
	return []int{
		s.Content.Analysis, s.Content.Evidence, s.Content.Clash,
		s.Style.Clarity, s.Style.Persuasion, s.Style.Delivery,
		s.Strategy.Framing, s.Strategy.Weighing, s.Strategy.TimeManagement,
	}
}

// CategoryScore converts sub-scores on a 1..10 scale into a 0..100 category
// score: the rounded mean times ten.
func CategoryScore(subs ...int) int {
	if len(subs) == 0 {
		return 0
	}
	sum := 0
	for _, v := range subs {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(subs)) * 10))
}

// Evaluation is a scored debate round. Total is always the sum of the three
// category scores.
type Evaluation struct {
	ID            string         `json:"id"`
	Date          string         `json:"date"`
	Event         string         `json:"event"`
	Motion        string         `json:"motion"`
	Content       int            `json:"content"`
	Style         int            `json:"style"`
	Strategy      int            `json:"strategy"`
	Subcategories *Subcategories `json:"subcategories,omitempty"`
	Total         int            `json:"total"`
	Strength      string         `json:"strength"`
	Weakness      string         `json:"weakness"`
	Action        string         `json:"action"`
	CreatedAt     string         `json:"createdAt"`
}

// ComputeTotal returns the sum of the category scores.
func (e Evaluation) ComputeTotal() int {
	return e.Content + e.Style + e.Strategy
}

// ApplySubcategories sets the category scores and total from subs.
func (e *Evaluation) ApplySubcategories(subs Subcategories) {
	e.Subcategories = &subs
	e.Content = CategoryScore(subs.Content.Analysis, subs.Content.Evidence, subs.Content.Clash)
	e.Style = CategoryScore(subs.Style.Clarity, subs.Style.Persuasion, subs.Style.Delivery)
	e.Strategy = CategoryScore(subs.Strategy.Framing, subs.Strategy.Weighing, subs.Strategy.TimeManagement)
	e.Total = e.ComputeTotal()
}

// Blob is a stored attachment. Data is excluded from JSON; the backup codec
// encodes it separately.
type Blob struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Data      []byte `json:"-"`
	CreatedAt string `json:"createdAt"`
}

// SyncResult summarises one Drive import run.
type SyncResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}
