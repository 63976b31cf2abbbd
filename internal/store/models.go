package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"buildwise/api/internal/home"
)

// JSONB maps a jsonb column onto a Go value.
type JSONB[T any] struct {
	V T
}

func NewJSONB[T any](v T) JSONB[T] {
	return JSONB[T]{V: v}
}

func (j *JSONB[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan jsonb: unsupported type %T", src)
	}
	return json.Unmarshal(raw, &j.V)
}

func (j JSONB[T]) Value() (driver.Value, error) {
	raw, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (j JSONB[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

func (j *JSONB[T]) UnmarshalJSON(raw []byte) error {
	return json.Unmarshal(raw, &j.V)
}

const (
	RoleBuilder = "builder"
	RoleClient  = "client"
	RoleMonitor = "monitor"
)

type Person struct {
	Email                string          `db:"email" json:"email"`
	FullName             string          `db:"full_name" json:"fullName"`
	Phone                string          `db:"phone" json:"phone"`
	PasswordHash         *string         `db:"password_hash" json:"-"`
	Roles                JSONB[[]string] `db:"roles" json:"roles"`
	EmailConfirmed       bool            `db:"email_confirmed" json:"emailConfirmed"`
	EmailConfirmToken    *string         `db:"email_confirm_token" json:"-"`
	EmailConfirmExpires  *time.Time      `db:"email_confirm_expires" json:"-"`
	AgreedToTermsAt      *time.Time      `db:"agreed_to_terms_at" json:"agreedToTermsAt,omitempty"`
	AgreedToTermsVersion string          `db:"agreed_to_terms_version" json:"agreedToTermsVersion,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updatedAt"`
}

func (p Person) HasRole(role string) bool {
	for _, r := range p.Roles.V {
		if r == role {
			return true
		}
	}
	return false
}

func (p Person) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// PersonInput is the identity supplied when a person is referenced by an invite or assignment.
type PersonInput struct {
	Email    string
	FullName string
	Phone    string
}

// MarketingSignup carries a self-service builder registration.
type MarketingSignup struct {
	Email         string
	FullName      string
	Phone         string
	PasswordHash  string
	ConfirmToken  string
	ConfirmExpiry time.Time
	TermsVersion  string
	AgreedAt      time.Time
}

type PersonFilter struct {
	Role  string
	Query string
	Limit int
}

type Template struct {
	ID          string                       `db:"id" json:"id"`
	Name        string                       `db:"name" json:"name"`
	Description string                       `db:"description" json:"description"`
	Trades      JSONB[[]home.BlueprintTrade] `db:"trades" json:"trades"`
	CreatedBy   string                       `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time                    `db:"created_at" json:"createdAt"`
}

type PermitDocument struct {
	Title    string `json:"title" yaml:"title"`
	URL      string `json:"url" yaml:"url"`
	FileName string `json:"fileName,omitempty" yaml:"fileName"`
}

type PermitDocumentSet struct {
	ID          string                  `db:"id" json:"id"`
	City        string                  `db:"city" json:"city"`
	State       string                  `db:"state" json:"state"`
	ZipCodes    JSONB[[]string]         `db:"zip_codes" json:"zipCodes"`
	ProjectType string                  `db:"project_type" json:"projectType"`
	Documents   JSONB[[]PermitDocument] `db:"documents" json:"documents"`
	CreatedAt   time.Time               `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time               `db:"updated_at" json:"updatedAt"`
}

type AIUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type AILog struct {
	ID           string          `db:"id" json:"id"`
	UserEmail    string          `db:"user_email" json:"userEmail"`
	Mode         string          `db:"mode" json:"mode"`
	Prompt       string          `db:"prompt" json:"prompt"`
	URLs         JSONB[[]string] `db:"urls" json:"urls"`
	Model        string          `db:"model" json:"model"`
	ResponseText string          `db:"response_text" json:"responseText"`
	Usage        JSONB[AIUsage]  `db:"usage" json:"usage"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

type MessageAttachment struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Message struct {
	ID          string                     `db:"id" json:"id"`
	HomeID      string                     `db:"home_id" json:"homeId"`
	TradeID     string                     `db:"trade_id" json:"tradeId,omitempty"`
	TaskID      string                     `db:"task_id" json:"taskId,omitempty"`
	AuthorEmail string                     `db:"author_email" json:"authorEmail"`
	AuthorName  string                     `db:"author_name" json:"authorName"`
	Text        string                     `db:"text" json:"text"`
	Attachments JSONB[[]MessageAttachment] `db:"attachments" json:"attachments"`
	CreatedAt   time.Time                  `db:"created_at" json:"createdAt"`
}

type MessageFilter struct {
	HomeID  string
	TradeID string
	TaskID  string
	Before  *time.Time
	Limit   int
}
