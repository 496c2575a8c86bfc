package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"clipper/internal/services"
)

func registerRoutes(r *gin.Engine, s *Server) {
	r.GET("/health", s.handleHealth)
	r.GET("/clip", s.handleGetClip)
	r.GET("/clips", s.handleListClips)
	r.POST("/clip", s.handleNewClip)
	r.POST("/generate", s.handleGenerate)
	r.POST("/normalize", s.handleNormalize)
	r.POST("/publish", s.handlePublish)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true, Clips: len(s.ctrl.List()), Catalog: s.ctrl.HasCatalog()})
}

func (s *Server) handleGetClip(c *gin.Context) {
	var ref ClipRef
	if !bindRequest(c, &ref) {
		return
	}
	if !requireUID(c, ref.ID) {
		return
	}
	rec, err := s.ctrl.Info(ref.ID)
	if err != nil {
		respondError(c, err, ref.ID)
		return
	}
	c.JSON(http.StatusOK, FromRecord(rec))
}

func (s *Server) handleListClips(c *gin.Context) {
	c.JSON(http.StatusOK, ClipListResponse{Items: FromRecords(s.ctrl.List())})
}

func (s *Server) handleNewClip(c *gin.Context) {
	var req ClipRequest
	if !bindRequest(c, &req) {
		return
	}
	id, err := s.ctrl.NewClip(c.Request.Context(), req.Source, req.Start, req.End)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, ClipCreatedResponse{ID: id})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req ClipRequest
	if !bindRequest(c, &req) {
		return
	}
	upload := true
	if req.Upload != nil {
		upload = *req.Upload
	}
	id, err := s.ctrl.Generate(c.Request.Context(), req.Source, req.Start, req.End, upload)
	if err != nil {
		respondError(c, err, id)
		return
	}
	c.JSON(http.StatusCreated, ClipCreatedResponse{ID: id})
}

func (s *Server) handleNormalize(c *gin.Context) {
	var ref ClipRef
	if !bindRequest(c, &ref) {
		return
	}
	if !requireUID(c, ref.ID) {
		return
	}
	if err := s.ctrl.Normalize(c.Request.Context(), ref.ID); err != nil {
		respondError(c, err, ref.ID)
		return
	}
	s.respondRecord(c, ref.ID)
}

func (s *Server) handlePublish(c *gin.Context) {
	var req PublishRequest
	if !bindRequest(c, &req) {
		return
	}
	if !requireUID(c, req.ID) {
		return
	}
	if err := s.ctrl.Publish(c.Request.Context(), req.ID, req.Category, req.Names); err != nil {
		respondError(c, err, req.ID)
		return
	}
	s.respondRecord(c, req.ID)
}

func (s *Server) respondRecord(c *gin.Context, id string) {
	rec, err := s.ctrl.Info(id)
	if err != nil {
		respondError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, FromRecord(rec))
}

// bindRequest reads query values, then form values or a JSON body. Body
// values win over query values.
func bindRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		respondError(c, services.Wrap(services.ErrValidation, "api", "bind", err.Error(), nil), "")
		return false
	}
	if c.Request.Method == http.MethodGet {
		return true
	}
	var err error
	switch {
	case strings.HasPrefix(c.ContentType(), binding.MIMEJSON):
		err = c.ShouldBindJSON(dst)
	case c.ContentType() == binding.MIMEPOSTForm || strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm):
		err = c.ShouldBindWith(dst, binding.Form)
	}
	if err != nil {
		respondError(c, services.Wrap(services.ErrValidation, "api", "bind", err.Error(), nil), "")
		return false
	}
	return true
}

func requireUID(c *gin.Context, id string) bool {
	if strings.TrimSpace(id) != "" {
		return true
	}
	respondError(c, services.Wrap(services.ErrValidation, "api", "bind", "uid is required", nil), "")
	return false
}

func respondError(c *gin.Context, err error, uid string) {
	status := http.StatusInternalServerError
	if services.IsDomain(err) {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Kind: services.Kind(err), UID: uid})
}
