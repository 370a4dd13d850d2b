package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/schedule"
	"github.com/trainhub/training-platform/internal/service"
)

// Тонкая HTTP-обвязка над движком бронирований. Авторизация — забота
// внешнего слоя: сюда запросы приходят уже от владельца бронирования.
type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*service.BookingDetail, error)
	GetBooking(ctx context.Context, id string) (*service.BookingDetail, error)
	UpdateSessionStatus(ctx context.Context, id string, index int, status schedule.SessionStatus, notes *string) (*service.BookingDetail, error)
	ExtendBooking(ctx context.Context, id string, in service.ExtendBookingInput) (*service.BookingDetail, error)
	ForceCompleteBooking(ctx context.Context, id string, in service.ForceCompleteInput) (*service.BookingDetail, error)
	ListBookings(ctx context.Context, trainerID string, from, to time.Time, page, pageSize int) (schedule.Page[model.Booking], error)
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

type createBookingRequest struct {
	ServiceID string `json:"service_id"`
	TrainerID string `json:"trainer_id"`
	ClientID  string `json:"client_id"`
	PetID     string `json:"pet_id"`
	StartDate string `json:"start_date"`
	TimeOfDay string `json:"time_of_day"`
}

type updateSessionRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type extendBookingRequest struct {
	AdditionalDays int    `json:"additional_days"`
	TimeOfDay      string `json:"time_of_day"`
}

type completeBookingRequest struct {
	FollowUpRequired bool   `json:"follow_up_required"`
	FollowUpDate     string `json:"follow_up_date"`
	Notes            string `json:"notes"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	serviceID, err := uuid.Parse(strings.TrimSpace(req.ServiceID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "service_id must be a valid uuid"})
	}
	trainerID, err := uuid.Parse(strings.TrimSpace(req.TrainerID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "trainer_id must be a valid uuid"})
	}
	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id must be a valid uuid"})
	}
	var petID *uuid.UUID
	if strings.TrimSpace(req.PetID) != "" {
		id, perr := uuid.Parse(strings.TrimSpace(req.PetID))
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pet_id must be a valid uuid"})
		}
		petID = &id
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_date must be RFC3339 or YYYY-MM-DD"})
	}

	detail, err := h.service.CreateBooking(c.Context(), service.CreateBookingInput{
		ServiceID: serviceID,
		TrainerID: trainerID,
		ClientID:  clientID,
		PetID:     petID,
		StartDate: startDate,
		TimeOfDay: strings.TrimSpace(req.TimeOfDay),
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": bookingResponseFrom(detail)})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	detail, err := h.service.GetBooking(c.Context(), c.Params("id"))
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"booking": bookingResponseFrom(detail)})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	trainerID := strings.TrimSpace(c.Query("trainer_id"))
	if trainerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "trainer_id is required"})
	}

	var from, to time.Time
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = parseDate(v); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be RFC3339 or YYYY-MM-DD"})
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = parseDate(v); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be RFC3339 or YYYY-MM-DD"})
		}
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	result, err := h.service.ListBookings(c.Context(), trainerID, from, to, page, pageSize)
	if err != nil {
		return mapBookingError(c, err)
	}

	items := make([]fiber.Map, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, bookingSummaryFrom(&result.Items[i]))
	}

	return c.JSON(fiber.Map{
		"bookings":  items,
		"page":      result.Page,
		"page_size": result.PageSize,
		"total":     result.Total,
		"has_next":  result.HasNext,
		"has_prev":  result.HasPrev,
	})
}

func (h *BookingHandler) UpdateSessionStatus(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session index must be an integer"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	detail, err := h.service.UpdateSessionStatus(
		c.Context(),
		c.Params("id"),
		index,
		schedule.SessionStatus(strings.TrimSpace(req.Status)),
		req.Notes,
	)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": bookingResponseFrom(detail)})
}

func (h *BookingHandler) ExtendBooking(c *fiber.Ctx) error {
	var req extendBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	detail, err := h.service.ExtendBooking(c.Context(), c.Params("id"), service.ExtendBookingInput{
		AdditionalDays: req.AdditionalDays,
		TimeOfDay:      strings.TrimSpace(req.TimeOfDay),
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": bookingResponseFrom(detail)})
}

func (h *BookingHandler) ForceCompleteBooking(c *fiber.Ctx) error {
	var req completeBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var followUpDate *time.Time
	if strings.TrimSpace(req.FollowUpDate) != "" {
		d, derr := parseDate(req.FollowUpDate)
		if derr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "follow_up_date must be RFC3339 or YYYY-MM-DD"})
		}
		followUpDate = &d
	}

	detail, err := h.service.ForceCompleteBooking(c.Context(), c.Params("id"), service.ForceCompleteInput{
		FollowUpRequired: req.FollowUpRequired,
		FollowUpDate:     followUpDate,
		Notes:            req.Notes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": bookingResponseFrom(detail)})
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// mapBookingError переводит таксономию движка в HTTP-статусы: ошибки
// валидации и границ — 400, отсутствие сущности — 404, недоступное
// хранилище — 503.
func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, schedule.ErrInvalidStatus),
		errors.Is(err, schedule.ErrIndexOutOfRange),
		errors.Is(err, schedule.ErrInvalidTimeOfDay):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStorage):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "storage unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
