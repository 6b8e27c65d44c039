package domain

import (
	"fmt"
	"strings"
)

// Entity is a chat participant or conversation: either a User or a Group.
type Entity interface {
	EntityID() int64
	DisplayName() string
	isEntity()
}

// User is a person. Tracked controls whether their messages are archived and
// defaults to true for newly seen users.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Tracked   bool   `json:"tracked"`
}

// Group is a multi-user conversation.
type Group struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (u User) EntityID() int64  { return u.ID }
func (g Group) EntityID() int64 { return g.ID }

func (User) isEntity()  {}
func (Group) isEntity() {}

func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("user %d", u.ID)
}

func (g Group) DisplayName() string {
	if g.Title != "" {
		return g.Title
	}
	return fmt.Sprintf("group %d", g.ID)
}

// NewUser returns a User with tracking enabled.
func NewUser(id int64, username, firstName, lastName string) User {
	return User{ID: id, Username: username, FirstName: firstName, LastName: lastName, Tracked: true}
}

// NormalizeUsername strips a leading "@" and surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
