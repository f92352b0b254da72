package server

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"dealwatch/storage"
)

// Triggerable mirrors the scheduler's view of a report worker.
type Triggerable interface {
	Trigger()
}

// Server is the HTTP trigger surface. Trigger routes acknowledge
// immediately; the run happens on the report's worker.
type Server struct {
	app     *fiber.App
	workers map[string]Triggerable
	store   *storage.SQLiteStore
}

func New(workers map[string]Triggerable, store *storage.SQLiteStore) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		workers: workers,
		store:   store,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/run-daily-report", s.handleTrigger("daily"))
	s.app.Get("/run-weekly-report", s.handleTrigger("weekly"))
	s.app.Get("/runs", s.handleRuns)
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.SendString("Deal property change reporter is live.")
}

func (s *Server) handleTrigger(reportID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		worker, ok := s.workers[reportID]
		if !ok {
			return c.Status(fiber.StatusNotFound).SendString("unknown report: " + reportID)
		}
		worker.Trigger()
		return c.SendString(reportID + " deal property change report triggered.")
	}
}

func (s *Server) handleRuns(c *fiber.Ctx) error {
	runs, err := s.store.RecentRuns(20)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(runs)
}

func (s *Server) Listen(addr string) error {
	log.Printf("HTTP trigger surface listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
