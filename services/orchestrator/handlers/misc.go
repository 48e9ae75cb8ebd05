// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName is the display name reported by the status endpoint.
const ServiceName = "杏铃酱"

// HandleStatus serves GET /status.
func HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "name": ServiceName})
}
