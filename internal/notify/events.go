package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// Event is a social event that renders into a notification. Rendering
// is pure: the same event always yields the same subject, body and
// recipient.
type Event interface {
	// Recipient is the user the notification is addressed to.
	Recipient() uuid.UUID
	// Render produces the notification subject and body.
	Render() (subject, body string)
}

// LikeEvent is raised when someone likes a user's post.
type LikeEvent struct {
	UserID        uuid.UUID `json:"userId"`
	LikerUsername string    `json:"likerUsername"`
	PostTitle     string    `json:"postTitle"`
}

func (e LikeEvent) Recipient() uuid.UUID { return e.UserID }

func (e LikeEvent) Render() (string, string) {
	return "New Like", fmt.Sprintf("User %s liked your post: %s", e.LikerUsername, e.PostTitle)
}

// CommentEvent is raised when someone comments on a user's post.
// CommentContent travels with the event but is not part of the
// rendered message.
type CommentEvent struct {
	UserID            uuid.UUID `json:"userId"`
	CommenterUsername string    `json:"commenterUsername"`
	PostTitle         string    `json:"postTitle"`
	CommentContent    string    `json:"commentContent"`
}

func (e CommentEvent) Recipient() uuid.UUID { return e.UserID }

func (e CommentEvent) Render() (string, string) {
	return "New Comment", fmt.Sprintf("User %s commented on your post: %s", e.CommenterUsername, e.PostTitle)
}

// FriendRequestEvent is raised when someone sends a friend request.
// The notification goes to the receiver, not the sender.
type FriendRequestEvent struct {
	SenderID       uuid.UUID `json:"senderId"`
	ReceiverID     uuid.UUID `json:"receiverId"`
	SenderUsername string    `json:"senderUsername"`
}

func (e FriendRequestEvent) Recipient() uuid.UUID { return e.ReceiverID }

func (e FriendRequestEvent) Render() (string, string) {
	return "New Friend Request", fmt.Sprintf("User %s sent you a friend request.", e.SenderUsername)
}

// RatingEvent is raised when someone rates a user's post.
type RatingEvent struct {
	UserID        uuid.UUID `json:"userId"`
	RaterUsername string    `json:"raterUsername"`
	PostTitle     string    `json:"postTitle"`
	RatingValue   int       `json:"ratingValue"`
}

func (e RatingEvent) Recipient() uuid.UUID { return e.UserID }

func (e RatingEvent) Render() (string, string) {
	return "New Rating", fmt.Sprintf("User %s rated your post '%s' with a rating of %d.", e.RaterUsername, e.PostTitle, e.RatingValue)
}
