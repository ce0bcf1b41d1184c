package model

import "time"

// Date and clock layouts used by the backend for LocalDate and LocalTime
// values.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Movie is a catalog entry.  ReleaseDate is kept as the backend's ISO date
// string; use Released to parse it.
type Movie struct {
	ID              int64  `json:"movieID" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Genre           string `json:"genre"`
	Duration        int    `json:"duration"`
	Description     string `json:"description"`
	ReleaseDate     string `json:"releaseDate"`
	TotalTicketLove int    `json:"totalTicketLove"`
	ImageURL        string `json:"imageUrl"`
	TrailerURL      string `json:"trailerUrl"`
}

// Released parses ReleaseDate.  The zero time is returned when the date is
// absent or malformed.
func (m Movie) Released() time.Time {
	t, _ := time.Parse(DateLayout, m.ReleaseDate)
	return t
}

// Room is a screening room.  RowLabels lists the row letters in order.
type Room struct {
	ID           int64  `json:"roomID" validate:"required"`
	RoomName     string `json:"roomName"`
	TotalSeats   int    `json:"totalSeats"`
	TotalRows    int    `json:"totalRows"`
	TotalColumns int    `json:"totalColumns"`
	RowLabels    string `json:"rowLabels"`
	RoomType     string `json:"roomType"`
}

// Showtime is a scheduled screening of a movie in a room.  Dates and times
// use the backend's local (zone-less) representation.
type Showtime struct {
	ID           int64   `json:"showtimeID" validate:"required"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	ShowtimeDate string  `json:"showtimeDate"`
	Description  string  `json:"description"`
	BasePrice    float64 `json:"basePrice" validate:"gte=0"`
	Movie        *Movie  `json:"movie,omitempty"`
	Room         *Room   `json:"room,omitempty"`
}

// Starts combines ShowtimeDate and StartTime in the local zone.  The zero
// time is returned when either part is missing.
func (s Showtime) Starts() time.Time {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.ShowtimeDate+" "+normalClock(s.StartTime), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RoomID returns the id of the room the showtime plays in, or 0.
func (s Showtime) RoomID() int64 {
	if s.Room == nil {
		return 0
	}
	return s.Room.ID
}

// normalClock accepts "15:04" as well as "15:04:05".
func normalClock(v string) string {
	if len(v) == 5 {
		return v + ":00"
	}
	return v
}

// Combo is a concession bundle sold alongside tickets.
type Combo struct {
	ID          int64   `json:"comboID" validate:"required"`
	Name        string  `json:"nameCombo"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
}

// Promotion is an active promotion code.  Discount is a percentage.
type Promotion struct {
	ID        int64   `json:"promoID"`
	Code      string  `json:"code" validate:"required"`
	Discount  float64 `json:"discount" validate:"gte=0,lte=100"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
}

// PromotionValidation is the body of POST /api/promotions/validate.
type PromotionValidation struct {
	Valid    bool    `json:"valid"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount" validate:"gte=0,lte=100"`
}

// Review is a customer's rating of a movie.
type Review struct {
	ID       int64         `json:"reviewID"`
	Star     int           `json:"star" validate:"gte=0,lte=5"`
	Comment  string        `json:"comment"`
	Customer *ReviewAuthor `json:"customer,omitempty"`
}

// ReviewAuthor carries the public part of the reviewer's profile.
type ReviewAuthor struct {
	Name string `json:"name"`
}

// Author returns the reviewer name or "Anonymous".
func (r Review) Author() string {
	if r.Customer == nil || r.Customer.Name == "" {
		return "Anonymous"
	}
	return r.Customer.Name
}

// ReviewRequest is the body of POST /api/reviews.
type ReviewRequest struct {
	Star    int    `json:"star" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
	MovieID int64  `json:"movieId" validate:"required"`
}

// AverageStars returns the mean star rating of reviews, or 0 when empty.
func AverageStars(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Star
	}
	return float64(sum) / float64(len(reviews))
}
