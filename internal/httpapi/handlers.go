/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/runner"
	"github.com/aahamlin/jira-reporting-scripts/internal/writer"
)

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	run *runner.Runner
}

func NewHandlers(cfg config.Config, log zerolog.Logger, run *runner.Runner) *Handlers {
	return &Handlers{cfg: cfg, log: log, run: run}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Report executes the named report synchronously and streams it as
// CSV, or as an HTML table with ?format=html.
func (h *Handlers) Report(c *gin.Context) {
	name := c.Param("name")
	header, rows, err := h.run.Run(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "html" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := writer.WriteHTML(c.Writer, header, rows, writer.Options{}); err != nil {
			h.log.Error().Err(err).Str("report", name).Msg("html write failed")
		}
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	if err := writer.WriteCSV(c.Writer, header, rows, writer.Options{}); err != nil {
		h.log.Error().Err(err).Str("report", name).Msg("csv write failed")
	}
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.run.LastRun(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if lr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, lr)
}

// RunNow queues a snapshot run detached from the request context.
func (h *Handlers) RunNow(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.run.Engine(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	go func() {
		if _, err := h.run.RunAndSnapshot(context.Background(), name); err != nil {
			h.log.Error().Err(err).Str("report", name).Msg("queued run failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
