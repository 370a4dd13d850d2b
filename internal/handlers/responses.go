package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/service"
)

type sessionResponse struct {
	Seq    int       `json:"seq"`
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	Notes  string    `json:"progress_notes"`
}

// bookingResponseFrom собирает ответ по бронированию: канонический список
// занятий плюс легаси-поля (плоские массивы дат и статусов) для клиентов,
// которые ещё читают старую форму.
func bookingResponseFrom(d *service.BookingDetail) fiber.Map {
	sessions := make([]sessionResponse, 0, len(d.Sessions))
	for _, s := range d.Sessions {
		sessions = append(sessions, sessionResponse{
			Seq:    s.Seq,
			Date:   s.Date,
			Status: string(s.Status),
			Notes:  s.Notes,
		})
	}

	statuses := make([]string, 0, len(d.SessionStatuses))
	for _, s := range d.SessionStatuses {
		statuses = append(statuses, string(s))
	}

	resp := bookingSummaryFrom(d.Booking)
	resp["sessions"] = sessions
	resp["session_dates"] = d.SessionDates
	resp["session_statuses"] = statuses
	return resp
}

func bookingSummaryFrom(b *model.Booking) fiber.Map {
	m := fiber.Map{
		"id":             b.ID.String(),
		"service_id":     b.ServiceID.String(),
		"trainer_id":     b.TrainerID.String(),
		"client_id":      b.ClientID.String(),
		"tier":           string(b.Tier),
		"start_date":     b.StartDate,
		"time_of_day":    b.TimeOfDay,
		"overall_status": string(b.OverallStatus),
		"created_at":     b.CreatedAt,
		"updated_at":     b.UpdatedAt,
	}
	if b.PetID != nil {
		m["pet_id"] = b.PetID.String()
	}
	if b.NextSessionAt != nil {
		m["next_session_at"] = *b.NextSessionAt
	}
	if b.AcceptedAt != nil {
		m["accepted_at"] = *b.AcceptedAt
	}
	if b.CompletedAt != nil {
		m["completed_at"] = *b.CompletedAt
	}
	if b.FollowUpRequired {
		m["follow_up_required"] = true
		if b.FollowUpDate != nil {
			m["follow_up_date"] = time.Time(*b.FollowUpDate).Format("2006-01-02")
		}
	}
	if b.Notes != "" {
		m["notes"] = b.Notes
	}
	return m
}
