package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
	"github.com/cellwatch/cell-surveillance/internal/modem"
)

// signalResponse is the JSON shape of a single reading. Unknown fields
// are null rather than carrying the in-memory sentinel.
type signalResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	Modem         string    `json:"modem"`
	ModemID       string    `json:"modemId"`
	ASU           *int32    `json:"asu"`
	BitErrorRate  *int32    `json:"ber"`
	TimingAdvance *int32    `json:"timingAdvance"`
	Dbm           *int32    `json:"dbm"`
	Level         int       `json:"level"`
	Bars          string    `json:"bars"`
}

func toSignalResponse(r modem.Reading) signalResponse {
	m := r.Measurement
	return signalResponse{
		Timestamp:     r.Timestamp,
		Modem:         r.ModemType,
		ModemID:       r.ModemID,
		ASU:           optInt(m.SignalStrength()),
		BitErrorRate:  optInt(m.BitErrorRate()),
		TimingAdvance: optInt(m.TimingAdvance()),
		Dbm:           optInt(m.Dbm()),
		Level:         int(m.Level()),
		Bars:          m.Level().String(),
	}
}

func optInt(v int32) *int32 {
	if v == gsm.Unknown {
		return nil
	}
	return &v
}

// newServer builds the HTTP server exposing the status API and the
// Prometheus scrape endpoint.
func newServer(addr string, history *modem.History, registry *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.GET("/signal", func(c *gin.Context) {
		reading, ok := history.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no readings yet"})
			return
		}
		c.JSON(http.StatusOK, toSignalResponse(reading))
	})

	v1.GET("/history", func(c *gin.Context) {
		readings := history.Snapshot()
		response := make([]signalResponse, len(readings))
		for i, r := range readings {
			response[i] = toSignalResponse(r)
		}
		c.JSON(http.StatusOK, response)
	})

	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
