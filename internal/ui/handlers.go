package ui

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andresmejia3/veil/internal/annotate"
	"github.com/andresmejia3/veil/internal/imagecodec"
	"github.com/andresmejia3/veil/internal/region"
	"github.com/andresmejia3/veil/internal/savefile"
	"github.com/gin-gonic/gin"
)

type camState struct {
	Index       int    `json:"index"`
	Channel     string `json:"channel"`
	Frames      int    `json:"frames"`
	Playhead    int    `json:"playhead"`
	Timestamp   uint64 `json:"timestamp"`
	Regions     int    `json:"regions"`
	HasTemplate bool   `json:"has_template"`
	KeyAnchor   *int   `json:"key_anchor,omitempty"`
}

type state struct {
	Mode    string     `json:"mode"`
	Focused int        `json:"focused"`
	Cams    []camState `json:"cams"`
	Message string     `json:"message,omitempty"`
}

type pointerInput struct {
	Kind string `json:"kind" binding:"required"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func snapshot(c *annotate.Coordinator, msg string) state {
	st := state{Mode: c.Mode().String(), Focused: c.Focused(), Message: msg}
	for _, s := range c.Sessions() {
		cs := camState{
			Index:     s.Camera(),
			Channel:   s.Channel(),
			Frames:    s.FrameCount(),
			Playhead:  s.Playhead(),
			Timestamp: s.Timestamp(),
			Regions:   len(s.Regions()),
		}
		_, cs.HasTemplate = s.Template()
		if _, frame, ok := s.KeyAnchor(); ok {
			cs.KeyAnchor = &frame
		}
		st.Cams = append(st.Cams, cs)
	}
	return st
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	api := r.Group("/api")
	api.GET("/cams", s.getCams)
	api.GET("/cams/:cam/frame.jpg", s.getFrame)
	api.POST("/cams/:cam/pointer", s.postPointer)
	api.POST("/commands/:name", s.postCommand)
}

func (s *Server) getCams(c *gin.Context) {
	v, err := s.do(c.Request.Context(), func(co *annotate.Coordinator) (any, error) {
		return snapshot(co, ""), nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) getFrame(c *gin.Context) {
	cam, err := strconv.Atoi(c.Param("cam"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "camera must be a number"})
		return
	}
	v, err := s.do(c.Request.Context(), func(co *annotate.Coordinator) (any, error) {
		img, err := co.Render(cam)
		if err != nil {
			return nil, err
		}
		return imagecodec.EncodeJPEG(img, s.opts.Quality)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", v.([]byte))
}

func (s *Server) postPointer(c *gin.Context) {
	cam, err := strconv.Atoi(c.Param("cam"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "camera must be a number"})
		return
	}
	var in pointerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := annotate.ParseEventKind(in.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev := annotate.Event{Camera: cam, Kind: kind, X: in.X, Y: in.Y}
	v, err := s.do(c.Request.Context(), func(co *annotate.Coordinator) (any, error) {
		if err := co.Handle(ev); err != nil {
			return nil, err
		}
		return snapshot(co, ""), nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) postCommand(c *gin.Context) {
	name := c.Param("name")
	var ratio float64
	if name == "seek" {
		r, err := strconv.ParseFloat(c.Query("ratio"), 64)
		if err != nil || r < 0 || r > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ratio must be between 0.0 and 1.0"})
			return
		}
		ratio = r
	}

	cmd, ok := s.command(c, name, ratio)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown command " + name})
		return
	}
	v, err := s.do(c.Request.Context(), func(co *annotate.Coordinator) (any, error) {
		msg, err := cmd(co)
		if err != nil {
			return nil, err
		}
		return snapshot(co, msg), nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	slog.Info("command", "name", name)
	c.JSON(http.StatusOK, v)

	if name == "quit" {
		s.requestQuit()
	}
}

// command maps a command name to its action on the coordinator.
func (s *Server) command(c *gin.Context, name string, ratio float64) (func(*annotate.Coordinator) (string, error), bool) {
	step := func(fn func(*annotate.Coordinator)) func(*annotate.Coordinator) (string, error) {
		return func(co *annotate.Coordinator) (string, error) {
			fn(co)
			return "", nil
		}
	}

	switch name {
	case "advance":
		return step(func(co *annotate.Coordinator) { co.AdvanceAll(1) }), true
	case "advance10":
		return step(func(co *annotate.Coordinator) { co.AdvanceAll(10) }), true
	case "retreat":
		return step(func(co *annotate.Coordinator) { co.RetreatAll(1) }), true
	case "retreat10":
		return step(func(co *annotate.Coordinator) { co.RetreatAll(10) }), true
	case "seek":
		return step(func(co *annotate.Coordinator) { co.SeekAllRatio(ratio) }), true
	case "confirm":
		return step(func(co *annotate.Coordinator) { co.ConfirmTemplateAtAllCursors() }), true
	case "erase":
		return step(func(co *annotate.Coordinator) { co.EraseAtCursors() }), true
	case "toggle":
		return step(func(co *annotate.Coordinator) { co.ToggleDisplayMode() }), true
	case "grow":
		return step(func(co *annotate.Coordinator) { co.ResizeTemplates(region.Grow) }), true
	case "shrink":
		return step(func(co *annotate.Coordinator) { co.ResizeTemplates(region.Shrink) }), true
	case "key-start":
		return func(co *annotate.Coordinator) (string, error) {
			if !co.MarkKeyStart() {
				return "no template to anchor", nil
			}
			return "key start marked", nil
		}, true
	case "key-end":
		return func(co *annotate.Coordinator) (string, error) {
			n, err := co.MarkKeyEnd()
			if err != nil {
				return "", err
			}
			return strconv.Itoa(n) + " regions added", nil
		}, true
	case "save":
		return func(co *annotate.Coordinator) (string, error) {
			if err := co.Save(); err != nil {
				return "", err
			}
			return "saved to " + co.SavePath(), nil
		}, true
	case "load":
		return func(co *annotate.Coordinator) (string, error) {
			if err := co.Load(); err != nil {
				return "", err
			}
			return "loaded " + co.SavePath(), nil
		}, true
	case "export":
		return func(co *annotate.Coordinator) (string, error) {
			if err := co.Save(); err != nil {
				return "", err
			}
			if s.opts.Export == nil {
				return "", errors.New("export is not configured")
			}
			out, err := s.opts.Export(c.Request.Context(), co.Stores())
			if err != nil {
				return "", err
			}
			return "exported to " + out, nil
		}, true
	case "quit":
		return step(func(*annotate.Coordinator) {}), true
	}
	return nil, false
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, annotate.ErrNoCamera), errors.Is(err, savefile.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
