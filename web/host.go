package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/workbench/core"
)

type resizeRequest struct {
	Width  int `json:"width" binding:"min=0"`
	Height int `json:"height" binding:"min=0"`
}

type keyDownRequest struct {
	Key        string   `json:"key" binding:"required"`
	Code       string   `json:"code"`
	Modifiers  []string `json:"modifiers"`
	TargetName string   `json:"targetName"`
}

type reloadRequest struct {
	Forced bool `json:"forced"`
}

func registerHostRoutes(g Router, app *core.App) {
	g.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"state": app.State()})
	})

	g.POST("/beforeunload", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"prevent": app.BeforeUnload(c.Request.Context())})
	})

	// The host does not wait for unload; contributions may stop this server.
	g.POST("/unload", func(c *gin.Context) {
		go app.Unload(context.WithoutCancel(c.Request.Context()))
		c.Status(http.StatusAccepted)
	})

	g.POST("/resize", func(c *gin.Context) {
		var req resizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Problem(c, http.StatusBadRequest, err.Error())
			return
		}
		app.Resize(req.Width, req.Height)
		c.Status(http.StatusNoContent)
	})

	g.POST("/composition/start", func(c *gin.Context) {
		app.CompositionStart()
		c.Status(http.StatusNoContent)
	})

	g.POST("/composition/end", func(c *gin.Context) {
		app.CompositionEnd()
		c.Status(http.StatusNoContent)
	})

	g.POST("/keydown", func(c *gin.Context) {
		var req keyDownRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Problem(c, http.StatusBadRequest, err.Error())
			return
		}
		handled := app.KeyDown(c.Request.Context(), core.KeyEvent{
			Key:        req.Key,
			Code:       req.Code,
			Modifiers:  req.Modifiers,
			TargetName: req.TargetName,
		})
		c.JSON(http.StatusOK, gin.H{"handled": handled})
	})

	g.POST("/reload", func(c *gin.Context) {
		var req reloadRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				Problem(c, http.StatusBadRequest, err.Error())
				return
			}
		}
		if err := app.Reload(req.Forced); err != nil {
			if errors.Is(err, core.ErrNotRegistered) {
				Problem(c, http.StatusNotImplemented, "no reload handler registered")
				return
			}
			Problem(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusAccepted)
	})
}
