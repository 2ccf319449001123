package utils

import (
	"io"

	"github.com/MrSnakeDoc/pulse/internal/logger"
)

// CloseLogged closes c and logs a failure under name. Meant for defers and
// shutdown paths where the error cannot be returned.
func CloseLogged(c io.Closer, name string, log logger.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("component", name), logger.Error(err))
	}
}
