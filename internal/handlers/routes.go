package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes монтирует ручки движка бронирований.
func RegisterRoutes(app *fiber.App, bookings *BookingHandler) {
	api := app.Group("/api/v1")

	api.Post("/bookings", bookings.CreateBooking)
	api.Get("/bookings", bookings.ListBookings)
	api.Get("/bookings/:id", bookings.GetBooking)
	api.Patch("/bookings/:id/sessions/:index", bookings.UpdateSessionStatus)
	api.Post("/bookings/:id/extend", bookings.ExtendBooking)
	api.Post("/bookings/:id/complete", bookings.ForceCompleteBooking)
}
