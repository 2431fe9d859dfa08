package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/rentflow/internal/scheduler"
)

const HeaderCronSecret = "X-Cron-Secret"

// CronSecretRequired admits external cron callers presenting CRON_SECRET.
func (s *Server) CronSecretRequired() gin.HandlerFunc {
	expected := []byte(s.cfg.CronSecret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderCronSecret))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": scheduler.JobNames()})
}

func (s *Server) RunJob(c *gin.Context) {
	result, err := s.scheduler.RunJob(c.Request.Context(), c.Param("job"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
