// Package api provides the REST API server for driving MIDI playback
package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Chunn241529/FourT-sub001/pkg/engine"
	"github.com/Chunn241529/FourT-sub001/pkg/input"
	"github.com/Chunn241529/FourT-sub001/pkg/score"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// @title FourT Performer API
// @version 1.0
// @description API for compiling MIDI files into in-game key events and driving playback
// @host localhost:8080
// @BasePath /api/v1

// Server wires the playback engine into HTTP handlers.
type Server struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewServer builds a server around an engine. A nil logger falls back to
// slog.Default.
func NewServer(eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: eng, log: log}
}

// StartServer assembles the default input stack and serves the API on the
// specified port
func StartServer(port int) error {
	ctrl := input.NewController(input.New(), nil)
	s := NewServer(engine.New(ctrl, nil), nil)
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.POST("/preprocess", s.handlePreprocess)
		v1.POST("/sanitize", s.handleSanitize)
		v1.POST("/play", s.handlePlay)
		v1.POST("/stop", s.handleStop)
		v1.GET("/status", s.handleStatus)
		v1.POST("/speed", s.handleSpeed)
		v1.POST("/handmode", s.handleHandMode)
		v1.POST("/loop", s.handleLoop)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "fourt",
	})
}

// handlePreprocess godoc
// @Summary Compile a MIDI file into key events
// @Description Upload a MIDI file and receive the playable event stream with analysis details
// @Tags playback
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Param auto_transpose formData bool false "Detect the key and shift it to C (default true)"
// @Param transpose formData int false "Manual semitone shift, overrides detection"
// @Param smart_bass formData bool false "Split chords across both hands"
// @Success 200 {object} score.Result
// @Failure 400 {object} map[string]string
// @Router /api/v1/preprocess [post]
func (s *Server) handlePreprocess(c *gin.Context) {
	data, _, ok := s.readUpload(c)
	if !ok {
		return
	}
	opts, err := scoreOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sng, err := song.LoadBytes(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, score.Process(sng, opts))
}

// handleSanitize godoc
// @Summary Repair a corrupt MIDI file
// @Description Upload a MIDI file with out-of-range data bytes and receive the repaired file
// @Tags playback
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI file"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/sanitize [post]
func (s *Server) handleSanitize(c *gin.Context) {
	data, name, ok := s.readUpload(c)
	if !ok {
		return
	}

	if _, err := song.LoadBytes(data); err == nil {
		c.Header("X-Repaired-Events", "0")
		sendMIDI(c, name, data)
		return
	}

	repaired, fixed, err := song.RepairBytes(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := song.LoadBytes(repaired); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": song.ErrUnrepairable.Error()})
		return
	}

	c.Header("X-Repaired-Events", strconv.Itoa(fixed))
	sendMIDI(c, name, repaired)
}

// handlePlay godoc
// @Summary Play a MIDI file
// @Description Upload a MIDI file, compile it and start pressing keys
// @Tags playback
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Param auto_transpose formData bool false "Detect the key and shift it to C (default true)"
// @Param transpose formData int false "Manual semitone shift, overrides detection"
// @Param smart_bass formData bool false "Split chords across both hands"
// @Param speed formData number false "Rate multiplier (default 1.0)"
// @Param loop formData bool false "Repeat until stopped"
// @Param hand_mode formData string false "both, left or right"
// @Param humanize formData bool false "Apply timing drift"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/play [post]
func (s *Server) handlePlay(c *gin.Context) {
	data, name, ok := s.readUpload(c)
	if !ok {
		return
	}
	opts, err := scoreOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := parseHandMode(c.PostForm("hand_mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	speed := 0.0
	if v := c.PostForm("speed"); v != "" {
		speed, err = strconv.ParseFloat(v, 64)
		if err != nil || speed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "speed must be a positive number"})
			return
		}
	}

	sng, err := song.LoadBytes(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := score.Process(sng, opts)

	session := engine.Session{
		Events:   res.Events,
		Speed:    speed,
		Loop:     parseBool(c.PostForm("loop"), false),
		HandMode: mode,
		Humanize: parseBool(c.PostForm("humanize"), false),
	}
	log := s.log.With("file", name)
	err = s.engine.Play(session, func(err error) {
		if err != nil {
			log.Error("playback failed", "error", err)
			return
		}
		log.Info("playback finished")
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "playing",
		"events":         len(res.Events),
		"total_duration": res.Duration,
		"debug_info":     res.Debug,
	})
}

// handleStop godoc
// @Summary Stop playback
// @Description Stops the running playback and releases all held keys
// @Tags playback
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/stop [post]
func (s *Server) handleStop(c *gin.Context) {
	s.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// handleStatus godoc
// @Summary Playback status
// @Description Reports whether playback is running and where it is
// @Tags playback
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"playing":   s.engine.IsActive(),
		"elapsed":   s.engine.Elapsed(),
		"speed":     s.engine.Speed(),
		"hand_mode": s.engine.HandMode().String(),
		"loop":      s.engine.Loop(),
	})
}

// handleSpeed godoc
// @Summary Change playback speed
// @Description Sets the rate multiplier, effective immediately
// @Tags playback
// @Accept multipart/form-data
// @Produce json
// @Param speed formData number true "Rate multiplier"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/speed [post]
func (s *Server) handleSpeed(c *gin.Context) {
	speed, err := strconv.ParseFloat(c.PostForm("speed"), 64)
	if err != nil || speed <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "speed must be a positive number"})
		return
	}
	s.engine.SetSpeed(speed)
	c.JSON(http.StatusOK, gin.H{"speed": speed})
}

// handleHandMode godoc
// @Summary Change the hand filter
// @Description Selects which hand's events are played: both, left or right
// @Tags playback
// @Accept multipart/form-data
// @Produce json
// @Param mode formData string true "both, left or right"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/handmode [post]
func (s *Server) handleHandMode(c *gin.Context) {
	mode, err := parseHandMode(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.engine.SetHandMode(mode)
	c.JSON(http.StatusOK, gin.H{"hand_mode": mode.String()})
}

// handleLoop godoc
// @Summary Toggle loop playback
// @Description Enables or disables repeating, effective at the end of the current pass
// @Tags playback
// @Accept multipart/form-data
// @Produce json
// @Param enabled formData bool true "Loop on or off"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /api/v1/loop [post]
func (s *Server) handleLoop(c *gin.Context) {
	enabled, err := strconv.ParseBool(c.PostForm("enabled"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled must be a boolean"})
		return
	}
	s.engine.SetLoop(enabled)
	c.JSON(http.StatusOK, gin.H{"loop": enabled})
}

// readUpload pulls the uploaded MIDI file out of the request. On failure it
// writes the error response and reports false.
func (s *Server) readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func sendMIDI(c *gin.Context, name string, data []byte) {
	if name == "" {
		name = "sanitized.mid"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, "audio/midi", data)
}

func scoreOptions(c *gin.Context) (score.Options, error) {
	opts := score.Options{
		AutoTranspose: parseBool(c.PostForm("auto_transpose"), true),
		SmartBass:     parseBool(c.PostForm("smart_bass"), false),
	}
	if v := c.PostForm("transpose"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("transpose must be an integer: %q", v)
		}
		opts.ManualTranspose = &n
	}
	return opts, nil
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseHandMode(v string) (engine.HandMode, error) {
	switch strings.ToLower(v) {
	case "", "0", "both":
		return engine.HandBoth, nil
	case "1", "left":
		return engine.HandLeft, nil
	case "2", "right":
		return engine.HandRight, nil
	}
	return engine.HandBoth, fmt.Errorf("unknown hand mode %q", v)
}
