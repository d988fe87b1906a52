package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VersionStatus — стадия жизненного цикла версии документа
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"      // Рабочая копия, перезаписывается
	StatusPublished  VersionStatus = "published"  // Единственная активная версия типа
	StatusSuperseded VersionStatus = "superseded" // Вытеснена более новой публикацией
)

// PolicyType — именованная категория политик (реестр).
// Владеет историей версий; создается один раз и почти не меняется.
type PolicyType struct {
	TypeKey     string    `json:"type_key"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PolicyVersion — неизменяемая запись истории. Номер версии назначается
// только при публикации, строго возрастает и никогда не переиспользуется.
// Черновик номера не имеет (VersionNo = 0 до публикации).
type PolicyVersion struct {
	ID          int64           `json:"id"`
	TypeKey     string          `json:"type_key"`
	VersionNo   int64           `json:"version_no"`
	Status      VersionStatus   `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Author      string          `json:"author,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// TypeKeyRoleScopePolicy — ключ типа, который читает движок решений
const TypeKeyRoleScopePolicy = "role_scope_policy"

// Ошибки административного контура. Только они поднимаются до вызывающего:
// все сбои на горячем пути гасятся внутри адаптера источника и аудита.
var (
	ErrTypeNotFound      = errors.New("policy type not found")
	ErrNoPublished       = errors.New("no published version")
	ErrNoDraft           = errors.New("no draft eligible for publish")
	ErrSourceUnavailable = errors.New("policy source unavailable")
)

// ValidationError агрегирует все найденные проблемы payload'а черновика.
// Отдаем список целиком, а не первую проблему: админ чинит документ за один заход.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy payload validation failed: %s", strings.Join(e.Issues, "; "))
}
