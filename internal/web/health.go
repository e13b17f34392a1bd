package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	Timestamp   string `json:"timestamp"`
}

// HealthChecker is implemented by every storage.VectorStore.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// healthHandler reports 503 when the vector store cannot be reached within 3 seconds.
func healthHandler(store HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:      "healthy",
			VectorStore: "connected",
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}
		status := fiber.StatusOK

		if store == nil {
			response.VectorStore = "not configured"
		} else if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.VectorStore = "disconnected"
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(response)
	}
}
