package notifications

import (
	"context"
	"fmt"
	"strconv"

	"bitewise/internal/domain/storage"

	"github.com/9ssi7/exponent"
)

// ReviewEvent describes a freshly posted review for the author's followers.
type ReviewEvent struct {
	ReviewID       int64
	AuthorID       int64
	AuthorName     string
	RestaurantName string
	Rating         int
}

// SendNewReviewNotification pushes a "friend reviewed X" message to every
// device of every follower of the author. It returns the number of messages
// handed to Expo; zero followers or zero tokens is not an error.
func SendNewReviewNotification(ctx context.Context, push PushSender, store *storage.Container, ev ReviewEvent) (int, error) {
	followerIDs, err := store.Followers.FollowerIDs(ctx, ev.AuthorID)
	if err != nil {
		return 0, err
	}
	if len(followerIDs) == 0 {
		return 0, nil
	}

	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, followerIDs)
	if err != nil {
		return 0, err
	}

	title := fmt.Sprintf("%s reviewed %s", ev.AuthorName, ev.RestaurantName)
	body := fmt.Sprintf("%d/5 stars. Tap to see what they ordered.", ev.Rating)
	reviewID := strconv.FormatInt(ev.ReviewID, 10)

	seen := make(map[string]bool)
	msgs := make([]*exponent.Message, 0)
	for _, uid := range followerIDs {
		for _, t := range tokensMap[uid] {
			if seen[t] {
				continue
			}
			seen[t] = true

			//wrap the string token in exponent.Token
			token := exponent.Token(t)
			msgs = append(msgs, &exponent.Message{
				To:    []*exponent.Token{&token},
				Title: title,
				Body:  body,
				//the client routes on data.screen when the notification is tapped
				Data: map[string]string{
					"type":     "review",
					"reviewId": reviewID,
					"screen":   "review-detail",
				},
			})
		}
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if _, err := push.Publish(ctx, msgs); err != nil {
		return 0, err
	}
	return len(msgs), nil
}
