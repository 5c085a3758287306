// Package resources maps internal entities to their external
// representations: related records are embedded, field exposure rules are
// applied (a stored profile-picture filename is always rewritten to a
// retrieval URL, never emitted raw), and paginated listings carry their
// pagination metadata.
package resources

import (
	"time"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
)

// PerPage is the fixed page size of every paginated listing.
const PerPage = 10

const timeFormat = "2006-01-02T15:04:05Z"

// Meta carries pagination metadata on paginated collections.
type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// Collection wraps a list representation, with pagination metadata when the
// listing is paginated.
type Collection[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// NewCollection builds an unpaginated collection.
func NewCollection[T any](data []T) Collection[T] {
	if data == nil {
		data = []T{}
	}
	return Collection[T]{Data: data}
}

// NewPaginatedCollection builds a collection carrying its page metadata.
func NewPaginatedCollection[T any](data []T, page int, total int64) Collection[T] {
	c := NewCollection(data)
	c.Meta = &Meta{CurrentPage: page, PerPage: PerPage, Total: total}
	return c
}

// OrganizationResource represents an organization in API responses
type OrganizationResource struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewOrganization maps an organization to its representation.
func NewOrganization(org models.Organization) OrganizationResource {
	return OrganizationResource{ID: org.ID, Name: org.Name}
}

// UserResource represents a user in API responses. The organization is
// embedded; the profile picture is exposed as a retrieval URL or null.
type UserResource struct {
	ID             uint                 `json:"id"`
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	Surname        string               `json:"surname"`
	Job            string               `json:"job"`
	ProfilePicture *string              `json:"profilePicture"`
	Disabled       bool                 `json:"disabled"`
	Organization   OrganizationResource `json:"organization"`
	Role           string               `json:"role"`
}

// NewUser maps a user to its representation. The user's Organization must be
// preloaded.
func NewUser(user models.User, st *storage.Storage) UserResource {
	var picture *string
	if user.ProfilePicture != "" {
		url := st.URLFor(user.ID)
		picture = &url
	}
	return UserResource{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Surname:        user.Surname,
		Job:            user.Job,
		ProfilePicture: picture,
		Disabled:       user.Disabled,
		Organization:   NewOrganization(user.Organization),
		Role:           string(user.Role),
	}
}

// NewUserCollection maps a list of users, organizations preloaded.
func NewUserCollection(users []models.User, st *storage.Storage) Collection[UserResource] {
	data := make([]UserResource, len(users))
	for i, u := range users {
		data[i] = NewUser(u, st)
	}
	return NewCollection(data)
}

// PostResource represents a post in API responses, with its author embedded.
type PostResource struct {
	ID        uint         `json:"id"`
	Content   string       `json:"content"`
	Author    UserResource `json:"author"`
	CreatedAt string       `json:"created_at"`
}

// NewPost maps a post to its representation. Author and the author's
// Organization must be preloaded.
func NewPost(post models.Post, st *storage.Storage) PostResource {
	return PostResource{
		ID:        post.ID,
		Content:   post.Content,
		Author:    NewUser(post.Author, st),
		CreatedAt: formatTime(post.CreatedAt),
	}
}

// NewPostCollection maps one page of posts with its metadata.
func NewPostCollection(posts []models.Post, st *storage.Storage, page int, total int64) Collection[PostResource] {
	data := make([]PostResource, len(posts))
	for i, p := range posts {
		data[i] = NewPost(p, st)
	}
	return NewPaginatedCollection(data, page, total)
}

// CommentResource represents a comment in API responses. Per current scope it
// embeds nothing beyond its own fields.
type CommentResource struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	AuthorID  uint   `json:"author_id"`
	PostID    uint   `json:"post_id"`
	CreatedAt string `json:"created_at"`
}

// NewComment maps a comment to its representation.
func NewComment(comment models.Comment) CommentResource {
	return CommentResource{
		ID:        comment.ID,
		Text:      comment.Text,
		AuthorID:  comment.AuthorID,
		PostID:    comment.PostID,
		CreatedAt: formatTime(comment.CreatedAt),
	}
}

// NewCommentCollection maps a list of comments, insertion order.
func NewCommentCollection(comments []models.Comment) Collection[CommentResource] {
	data := make([]CommentResource, len(comments))
	for i, c := range comments {
		data[i] = NewComment(c)
	}
	return NewCollection(data)
}

// ReactionTypeResource represents a reaction type in API responses
type ReactionTypeResource struct {
	ID    uint   `json:"id"`
	Label string `json:"label"`
}

// ReactionResource represents a reaction in API responses, with its type
// embedded.
type ReactionResource struct {
	ID       uint                 `json:"id"`
	Type     ReactionTypeResource `json:"type"`
	AuthorID uint                 `json:"author_id"`
	PostID   uint                 `json:"post_id"`
}

// NewReaction maps a reaction to its representation. Type must be preloaded.
func NewReaction(reaction models.Reaction) ReactionResource {
	return ReactionResource{
		ID:       reaction.ID,
		Type:     ReactionTypeResource{ID: reaction.Type.ID, Label: reaction.Type.Label},
		AuthorID: reaction.AuthorID,
		PostID:   reaction.PostID,
	}
}

// NewReactionCollection maps a list of reactions, insertion order.
func NewReactionCollection(reactions []models.Reaction) Collection[ReactionResource] {
	data := make([]ReactionResource, len(reactions))
	for i, r := range reactions {
		data[i] = NewReaction(r)
	}
	return NewCollection(data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
