/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package httpapi serves reports over HTTP for the long-running mode.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/runner"
)

func NewRouter(cfg config.Config, log zerolog.Logger, run *runner.Runner) *gin.Engine {
	if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, run)

	r.GET("/healthz", h.Healthz)
	r.GET("/reports/:name", h.Report)
	r.GET("/admin/last-run/:name", h.LastRun)
	r.POST("/admin/run/:name", h.RunNow)

	return r
}
