package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MasterOfPuppets/wradio/internal/explore"
	"github.com/MasterOfPuppets/wradio/internal/models"
)

// --- Player ---

func (s *Server) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.player.State())
}

// StreamState pushes every PlayerState snapshot over SSE.
func (s *Server) StreamState(c *gin.Context) {
	ch := s.player.Watch(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("state", state)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type playRequest struct {
	UUIDs []string `json:"uuids" binding:"required"`
	Index int      `json:"index"`
}

func (s *Server) Play(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.UUIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uuids required"})
		return
	}
	if req.Index < 0 || req.Index >= len(req.UUIDs) {
		req.Index = 0
	}

	stations := make([]models.Station, 0, len(req.UUIDs))
	for _, id := range req.UUIDs {
		st, err := s.repo.Get(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if st == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown station " + id})
			return
		}
		stations = append(stations, *st)
	}

	// Playing counts as usage even before the session tracker weighs in.
	now := time.Now().UnixMilli()
	stations[req.Index].LastPlayed = &now
	if err := s.repo.Save(stations[req.Index]); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.player.Play(c.Request.Context(), stations, req.Index); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) Resume(c *gin.Context) {
	if err := s.player.Resume(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Pause(c *gin.Context) {
	if err := s.player.Pause(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Stop(c *gin.Context) {
	if err := s.player.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ClearError(c *gin.Context) {
	s.player.ClearError()
	c.JSON(http.StatusOK, s.player.State())
}

// --- Library ---

func (s *Server) GetStations(c *gin.Context) {
	var (
		list []models.Station
		err  error
	)
	switch c.DefaultQuery("sort", "name") {
	case "history":
		list, err = s.repo.ByHistory()
	case "usage":
		list, err = s.repo.ByUsage()
	default:
		list, err = s.repo.All()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

type stationRequest struct {
	Name      string `json:"name" binding:"required"`
	StreamURL string `json:"stream_url" binding:"required"`
}

func (s *Server) AddStation(c *gin.Context) {
	var req stationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st := models.Station{
		UUID:            uuid.NewString(),
		Name:            models.TruncateName(req.Name),
		StreamURL:       req.StreamURL,
		IsManuallyAdded: true,
	}
	if err := s.repo.Save(st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) UpdateStation(c *gin.Context) {
	var req stationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := s.repo.Get(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}

	st.Name = models.TruncateName(req.Name)
	st.StreamURL = req.StreamURL
	// Editing takes ownership: the record no longer mirrors the directory.
	st.IsManuallyAdded = true

	if err := s.repo.Save(*st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) DeleteStation(c *gin.Context) {
	st, err := s.repo.Get(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}
	if err := s.repo.Delete(*st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) DeleteAllStations(c *gin.Context) {
	if err := s.repo.DeleteAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Explore ---

func (s *Server) GetExplore(c *gin.Context) {
	c.JSON(http.StatusOK, exploreJSON(s.explore.State()))
}

type searchRequest struct {
	Query string `json:"q" binding:"required"`
}

func (s *Server) ExploreSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.explore.Search(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, exploreJSON(s.explore.State()))
}

type importRequest struct {
	UUID string `json:"uuid" binding:"required"`
}

func (s *Server) ExploreImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	success, ok := s.explore.State().(explore.Success)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no search results to import from"})
		return
	}
	for _, wrapper := range success.Stations {
		if wrapper.Station.UUID == req.UUID {
			if err := s.explore.Import(c.Request.Context(), wrapper.Station); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, wrapper.Station)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "station not in current results"})
}

// exploreJSON renders the sealed explore state with a discriminator tag.
func exploreJSON(state explore.UIState) gin.H {
	switch st := state.(type) {
	case explore.Idle:
		return gin.H{"state": "idle"}
	case explore.Loading:
		return gin.H{"state": "loading"}
	case explore.Success:
		return gin.H{"state": "success", "stations": st.Stations}
	case explore.NoResults:
		return gin.H{"state": "no_results", "query": st.Query}
	case explore.NetworkError:
		return gin.H{"state": "network_error", "message": st.Message}
	default:
		return gin.H{"state": "idle"}
	}
}

// --- Settings ---

func (s *Server) GetBufferSeconds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"buffer_seconds": s.prefs.BufferSeconds()})
}

type bufferRequest struct {
	Seconds int `json:"buffer_seconds" binding:"required"`
}

func (s *Server) SetBufferSeconds(c *gin.Context) {
	var req bufferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Seconds <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buffer_seconds must be positive"})
		return
	}
	if err := s.prefs.SetBufferSeconds(req.Seconds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"buffer_seconds": req.Seconds})
}

func (s *Server) ResetSettings(c *gin.Context) {
	if err := s.prefs.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"buffer_seconds": s.prefs.BufferSeconds()})
}
