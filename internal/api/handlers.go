package api

import (
	"net/http"
	"strconv"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/gin-gonic/gin"
)

// OwnerHeader lets a client reuse its override token across requests.
const OwnerHeader = "X-Override-Owner"

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type overrideResponse struct {
	Owner ups.OwnerToken   `json:"owner"`
	UPS   ups.StatusReport `json:"ups"`
}

type supervisorResponse struct {
	Phase   string `json:"phase"`
	Counter int    `json:"counter"`
}

func abortWithError(c *gin.Context, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var coded errors.Error
	if errors.As(err, &coded) {
		resp.Code = string(coded.Code())
	}
	c.IndentedJSON(status, resp)
	_ = c.AbortWithError(status, err)
}

func (s *Server) index(c *gin.Context) {
	c.String(http.StatusOK, "Infotainment Backend Running")
}

func (s *Server) getConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.deps.Config)
}

func (s *Server) getTelemetry(c *gin.Context) {
	sample := s.deps.Telemetry.Snapshot(c.Request.Context())
	if s.deps.Warnings != nil {
		s.deps.Warnings.Observe(sample)
	}
	c.IndentedJSON(http.StatusOK, telemetry.NewFrame(sample, s.deps.UPS.Status()))
}

func (s *Server) getWarnings(c *gin.Context) {
	warnings := []telemetry.Warning{}
	if s.deps.Warnings != nil {
		warnings = s.deps.Warnings.Active()
	}
	c.IndentedJSON(http.StatusOK, warnings)
}

func (s *Server) getUPS(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.deps.UPS.Status())
}

func (s *Server) overrideUPS(c *gin.Context) {
	owner := ups.NewOwnerToken()
	if h := c.GetHeader(OwnerHeader); h != "" {
		parsed, err := ups.ParseOwnerToken(h)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		owner = parsed
	}

	var req ups.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	if err := s.deps.UPS.Override(owner, req); err != nil {
		status := http.StatusBadRequest
		if errors.HasCode(err, ups.ErrOverrideNotAllowed) {
			status = http.StatusConflict
		}
		abortWithError(c, status, err)
		return
	}

	s.logger.Debug().Str("owner", string(owner)).Msg("UPS override applied")
	c.IndentedJSON(http.StatusOK, overrideResponse{Owner: owner, UPS: s.deps.UPS.Status()})
}

func (s *Server) releaseUPS(c *gin.Context) {
	owner, err := ups.ParseOwnerToken(c.Param("owner"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if !s.deps.UPS.Release(owner) {
		abortWithError(c, http.StatusNotFound, errors.New().WithData(ups.ErrInvalidOwner, string(owner)))
		return
	}

	s.logger.Debug().Str("owner", string(owner)).Msg("UPS override released")
	c.IndentedJSON(http.StatusOK, s.deps.UPS.Status())
}

func (s *Server) getSupervisor(c *gin.Context) {
	if s.deps.Supervisor == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New().New(errors.ErrUnavailable))
		return
	}
	phase, counter := s.deps.Supervisor.Status()
	c.IndentedJSON(http.StatusOK, supervisorResponse{Phase: phase.String(), Counter: counter})
}

func (s *Server) getEvents(c *gin.Context) {
	if s.deps.Journal == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New().WithMessage(errors.ErrUnavailable, "Power event journal not configured"))
		return
	}

	limit := 0
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, errors.New().WithData(errors.ErrInvalidArgument, q))
			return
		}
		limit = n
	}

	entries, err := s.deps.Journal.Recent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, entries)
}

// control acknowledges display commands such as volume and brightness;
// they are handled by the head unit itself.
func (s *Server) control(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"status": "success", "message": "Control command received"})
}
