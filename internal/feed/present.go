package feed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"bitewise/internal/domain/reviews"
)

const (
	maxDishChips     = 3
	maxStars         = 5
	DefaultDayLayout = "1/2/2006"
)

// Card is what one feed row shows.
type Card struct {
	ID         string
	UserName   string
	Avatar     string
	Restaurant string
	Address    string
	Date       string
	Stars      string
	Text       string
	Dishes     []string
	MoreDishes string
	Photo      string
	MorePhotos string
}

// Presenter renders feed rows. Absolute dates use Layout in Location.
type Presenter struct {
	Layout   string
	Location *time.Location
}

var DefaultPresenter = Presenter{Layout: DefaultDayLayout, Location: time.Local}

func (p Presenter) Present(r reviews.FeedReview, now time.Time) Card {
	c := Card{
		ID:         r.ID,
		UserName:   r.UserName,
		Restaurant: r.RestaurantName,
		Address:    r.RestaurantAddress,
		Date:       p.DateLabel(r.CreatedAt, now),
		Stars:      StarRow(r.Rating),
		Text:       r.Text,
	}
	if r.UserAvatar != nil {
		c.Avatar = *r.UserAvatar
	}
	c.Dishes, c.MoreDishes = DishChips(r.Items)
	c.Photo, c.MorePhotos = LeadPhoto(r.PhotoURLs)
	return c
}

// DateLabel turns a timestamp into Today, Yesterday, "N days ago" (N < 7) or
// an absolute date. N is the elapsed time in days rounded up, so 25 hours
// reads as 2 days ago.
func (p Presenter) DateLabel(createdAt, now time.Time) string {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	days := int(math.Ceil(elapsed.Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}

	layout, loc := p.Layout, p.Location
	if layout == "" {
		layout = DefaultDayLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return createdAt.In(loc).Format(layout)
}

func DateLabel(createdAt, now time.Time) string {
	return DefaultPresenter.DateLabel(createdAt, now)
}

// StarRow renders rating as five glyphs.
func StarRow(rating int) string {
	filled := min(max(rating, 0), maxStars)
	return strings.Repeat("★", filled) + strings.Repeat("☆", maxStars-filled)
}

// DishChips returns at most three dishes and a "+K more" suffix for the rest.
func DishChips(items []string) ([]string, string) {
	if len(items) <= maxDishChips {
		return items, ""
	}
	return items[:maxDishChips], fmt.Sprintf("+%d more", len(items)-maxDishChips)
}

// LeadPhoto returns the first photo and a "+K more" badge for the rest.
func LeadPhoto(urls []string) (string, string) {
	switch len(urls) {
	case 0:
		return "", ""
	case 1:
		return urls[0], ""
	default:
		return urls[0], fmt.Sprintf("+%d more", len(urls)-1)
	}
}
