package domain

import (
	"fmt"
	"strings"
	"time"
)

// PostStatus - статус публикации поста.
type PostStatus string

const (
	StatusDraft     PostStatus = "DF"
	StatusPublished PostStatus = "PB"
)

// UnusablePasswordPrefix отмечает хэш, по которому войти нельзя.
const UnusablePasswordPrefix = "!"

// User представляет учетную запись пользователя.
type User struct {
	ID           string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email        string     `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"type:varchar(255);uniqueIndex;not null;default:''"`
	FirstName    string     `json:"firstName" gorm:"type:varchar(50);not null;default:''"`
	LastName     string     `json:"lastName" gorm:"type:varchar(50);not null;default:''"`
	MobileNumber string     `json:"mobileNumber,omitempty" gorm:"type:varchar(15);not null;default:''"`
	PasswordHash string     `json:"-" gorm:"type:varchar(128);not null"`
	IsActive     bool       `json:"isActive" gorm:"not null"`
	IsStaff      bool       `json:"isStaff" gorm:"not null;default:false"`
	IsSuperuser  bool       `json:"isSuperuser" gorm:"not null;default:false"`
	DateJoined   time.Time  `json:"dateJoined" gorm:"not null"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// FullName возвращает имя и фамилию через пробел.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ShortName возвращает имя или, если его нет, локальную часть email.
func (u *User) ShortName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// HasUsablePassword сообщает, можно ли войти по паролю.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, UnusablePasswordPrefix)
}

// Tag - метка, по которой фильтруется список постов.
type Tag struct {
	ID   string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);not null"`
	Slug string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
}

// Post представляет пост в блоге.
type Post struct {
	ID        string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title     string     `json:"title" gorm:"type:varchar(250);not null"`
	Slug      string     `json:"slug" gorm:"type:varchar(250);not null;index"`
	AuthorID  string     `json:"authorId" gorm:"type:varchar(36);not null;index"`
	Body      string     `json:"body" gorm:"type:text;not null"`
	Publish   time.Time  `json:"publish" gorm:"not null;index"`
	Status    PostStatus `json:"status" gorm:"type:varchar(2);not null;default:'DF';index"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Tags      []*Tag     `json:"tags" gorm:"many2many:post_tags;"`
	Comments  []*Comment `json:"-" gorm:"foreignKey:PostID"` // gorm only
}

// IsPublished сообщает, опубликован ли пост.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// Key возвращает естественный ключ поста.
func (p *Post) Key() NaturalKey {
	t := p.Publish.UTC()
	return NaturalKey{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Slug: p.Slug}
}

// URLPath возвращает канонический путь к странице поста.
func (p *Post) URLPath() string {
	return p.Key().URLPath()
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string    `json:"postId" gorm:"type:varchar(36);not null;index"`
	Name      string    `json:"name" gorm:"type:varchar(80);not null"`
	Email     string    `json:"email" gorm:"type:varchar(254);not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Active    bool      `json:"active" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NaturalKey - публичный ключ опубликованного поста: дата публикации (UTC) и slug.
type NaturalKey struct {
	Year  int
	Month int
	Day   int
	Slug  string
}

// DayRange возвращает полуинтервал [start, end) суток публикации в UTC.
func (k NaturalKey) DayRange() (time.Time, time.Time) {
	start := time.Date(k.Year, time.Month(k.Month), k.Day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Valid проверяет, что дата существует в календаре.
func (k NaturalKey) Valid() bool {
	if k.Slug == "" || k.Month < 1 || k.Month > 12 || k.Day < 1 {
		return false
	}
	start, _ := k.DayRange()
	return start.Year() == k.Year && int(start.Month()) == k.Month && start.Day() == k.Day
}

func (k NaturalKey) URLPath() string {
	return fmt.Sprintf("/blog/%d/%d/%d/%s", k.Year, k.Month, k.Day, k.Slug)
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d/%s", k.Year, k.Month, k.Day, k.Slug)
}
