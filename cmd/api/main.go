package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"libattend/internal/attendance"
	"libattend/internal/config"
	"libattend/internal/httpmiddleware"
	"libattend/internal/queue"
	"libattend/internal/stats"
	"libattend/internal/store"
	"libattend/internal/student"
)

var (
	swipesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "libattend_swipes_total",
		Help: "Swipe toggles processed, by direction.",
	}, []string{"direction"})
	forceOutClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "libattend_force_out_closed_total",
		Help: "Open sessions closed by force-out invocations.",
	})
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	prometheus.MustRegister(swipesTotal, forceOutClosed)

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	att := attendance.NewService(attendance.NewRepository(db.Client), nil)
	roster := student.NewService(student.NewRepository(db.Client))
	recorder := stats.NewRecorder(redisClient.Client, cfg.StatsRetention)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	v1 := r.Group("/v1")

	v1.POST("/swipes", func(c *gin.Context) {
		var req struct {
			CardID string `json:"card_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		st, err := roster.ByCard(c.Request.Context(), req.CardID)
		if err != nil {
			if errors.Is(err, student.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "card not registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		rec, err := att.Swipe(c.Request.Context(), req.CardID, attendance.Snapshot{
			RollNumber: st.RollNumber,
			CardID:     st.CardID,
			Name:       st.Name,
			Branch:     st.Branch,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		direction := stats.DirectionOut
		httpStatus := http.StatusOK
		if rec.Open() {
			direction = stats.DirectionIn
			httpStatus = http.StatusCreated
		}
		swipesTotal.WithLabelValues(direction).Inc()

		evt := stats.SwipeEvent{RecordID: rec.ID, CardID: rec.CardID, Direction: direction, DateKey: rec.DateKey}
		if err := q.Publish(c.Request.Context(), queue.Message{Type: stats.MessageType, Body: evt.Encode()}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(httpStatus, gin.H{"direction": direction, "record": rec})
	})

	v1.GET("/attendance", func(c *gin.Context) {
		limit, offset := 50, 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		if v := c.Query("offset"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				offset = parsed
			}
		}
		recs, err := att.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": recs})
	})

	v1.GET("/attendance/active", func(c *gin.Context) {
		recs, err := att.Active(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"active_records": recs, "count": len(recs)})
	})

	v1.POST("/attendance/force-out", func(c *gin.Context) {
		closed, err := att.ForceOutAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "closed": closed})
			return
		}
		forceOutClosed.Add(float64(closed))
		c.JSON(http.StatusOK, gin.H{"closed": closed})
	})

	v1.PUT("/attendance/:id/clock-out", func(c *gin.Context) {
		rec, err := att.CloseByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, attendance.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			case errors.Is(err, attendance.ErrAlreadyClosed):
				c.JSON(http.StatusConflict, gin.H{"error": "record already closed"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		swipesTotal.WithLabelValues(stats.DirectionOut).Inc()
		c.JSON(http.StatusOK, gin.H{"record": rec})
	})

	v1.GET("/reports/:date", func(c *gin.Context) {
		dateKey := c.Param("date")
		if _, err := time.Parse("2006-01-02", dateKey); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		summaries, err := att.ReportByDate(c.Request.Context(), dateKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": dateKey, "report": summaries})
	})

	v1.GET("/stats/:date", func(c *gin.Context) {
		day, err := recorder.Snapshot(c.Request.Context(), c.Param("date"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, day)
	})

	v1.GET("/students", func(c *gin.Context) {
		sts, err := roster.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": sts})
	})

	v1.POST("/students", func(c *gin.Context) {
		var st student.Student
		if err := c.ShouldBindJSON(&st); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		created, err := roster.Add(c.Request.Context(), st)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"student": created})
	})

	v1.POST("/students/bulk", func(c *gin.Context) {
		var sts []student.Student
		if err := c.ShouldBindJSON(&sts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		created, err := roster.AddMany(c.Request.Context(), sts)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"students": created, "count": len(created)})
	})

	v1.PUT("/students/:id", func(c *gin.Context) {
		var st student.Student
		if err := c.ShouldBindJSON(&st); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := roster.Update(c.Request.Context(), c.Param("id"), st)
		if err != nil {
			if errors.Is(err, student.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"student": updated})
	})

	v1.DELETE("/students/:id", func(c *gin.Context) {
		if err := roster.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, student.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// CORS middleware for browser requests from the admin UI.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
