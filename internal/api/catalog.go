package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Movies lists the whole catalog.
func (c *Client) Movies(ctx context.Context) ([]model.Movie, error) {
	var out []model.Movie
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/movies", out: &out})
	return out, err
}

// Movie fetches one movie.
func (c *Client) Movie(ctx context.Context, id int64) (model.Movie, error) {
	var out model.Movie
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/movies/" + itoa(id), out: &out})
	return out, err
}

// SearchMovies matches movies by title.  A blank title lists everything.
func (c *Client) SearchMovies(ctx context.Context, title string) ([]model.Movie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return c.Movies(ctx)
	}
	var out []model.Movie
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/movies/search",
		query:  url.Values{"title": {title}},
		out:    &out,
	})
	return out, err
}

// ShowtimesForMovie lists the showtimes of a movie.
func (c *Client) ShowtimesForMovie(ctx context.Context, movieID int64) ([]model.Showtime, error) {
	var out []model.Showtime
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/showtimes/movie/" + itoa(movieID), out: &out})
	return out, err
}

// NowShowing lists showtimes playing today or later for released movies.
func (c *Client) NowShowing(ctx context.Context) ([]model.Showtime, error) {
	var out []model.Showtime
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/showtimes/now-showing", out: &out})
	return out, err
}

// Upcoming lists showtimes of movies not yet released.
func (c *Client) Upcoming(ctx context.Context) ([]model.Showtime, error) {
	var out []model.Showtime
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/showtimes/upcoming", out: &out})
	return out, err
}

// Showtime fetches one showtime including its movie and room.
func (c *Client) Showtime(ctx context.Context, id int64) (model.Showtime, error) {
	var out model.Showtime
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/showtimes/" + itoa(id), out: &out})
	return out, err
}

// Room fetches a room's dimensions.
func (c *Client) Room(ctx context.Context, id int64) (model.Room, error) {
	var out model.Room
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/rooms/" + itoa(id), out: &out})
	return out, err
}

// Seats fetches a room's seat map with the current status of every seat.
func (c *Client) Seats(ctx context.Context, roomID int64) ([]model.Seat, error) {
	var out []model.Seat
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/rooms/" + itoa(roomID) + "/seats", out: &out})
	return out, err
}

// Combos lists the concession catalog.
func (c *Client) Combos(ctx context.Context) ([]model.Combo, error) {
	var out []model.Combo
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/combos", out: &out})
	return out, err
}

// ActivePromotions lists promotion codes valid today.
func (c *Client) ActivePromotions(ctx context.Context) ([]model.Promotion, error) {
	var out []model.Promotion
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/promotions/active", out: &out})
	return out, err
}

// ValidatePromotion asks the backend whether code is usable now.  An
// invalid code is not an error at this level: the result has Valid=false.
func (c *Client) ValidatePromotion(ctx context.Context, code string) (model.PromotionValidation, error) {
	var out model.PromotionValidation
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/promotions/validate",
		query:  url.Values{"code": {code}},
		out:    &out,
	})
	return out, err
}

// Reviews lists the reviews of a movie.
func (c *Client) Reviews(ctx context.Context, movieID int64) ([]model.Review, error) {
	var out []model.Review
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/reviews/movie/" + itoa(movieID), out: &out})
	return out, err
}

// PostReview publishes the signed-in user's review.
func (c *Client) PostReview(ctx context.Context, req model.ReviewRequest) (model.Review, error) {
	if err := c.Validate(req); err != nil {
		return model.Review{}, err
	}
	var out model.Review
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/reviews", body: req, out: &out, auth: true})
	return out, err
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
