package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/pkg/cron"
	pkgredis "github.com/formvoice/core/internal/pkg/redis"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// Deps are the collaborators the health endpoints report on. Redis is optional.
type Deps struct {
	DB     *gorm.DB
	Redis  *pkgredis.Client
	Sched  *cron.Scheduler
	LogDir string
}

func RegisterRoutes(rg *gin.RouterGroup, d Deps, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := d.DB.DB()
		dbOK := err == nil && sqlDB.PingContext(ctx) == nil
		body := gin.H{"database": dbOK}

		healthy := dbOK
		if d.Redis != nil {
			redisOK := d.Redis.Ping(ctx) == nil
			body["redis"] = redisOK
			healthy = healthy && redisOK
		}

		code := http.StatusOK
		body["status"] = "ok"
		if !healthy {
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, body)
	})

	admin := rg.Group("/health", authMW)
	cronGroup := admin.Group("/cron")
	{
		cronGroup.GET("", func(c *gin.Context) {
			response.OK(c, d.Sched.List())
		})

		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if c.Query("wait") == "true" {
				result, err := d.Sched.RunSync(c.Request.Context(), c.Param("name"))
				if err != nil {
					response.NotFoundMsg(c, err.Error())
					return
				}
				response.OK(c, result)
				return
			}
			if err := d.Sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})

		cronGroup.GET("/task/:name", func(c *gin.Context) {
			result, err := d.Sched.GetTask(c.Param("name"))
			if err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, result)
		})
	}

	logGroup := admin.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			entries, err := os.ReadDir(d.LogDir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.OK(c, []logItem{})
					return
				}
				response.InternalError(c, err)
				return
			}
			items := make([]logItem, 0, len(entries))
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}
				items = append(items, logItem{
					Size:     formatByteSize(info.Size()),
					Filename: entry.Name(),
					Created:  info.ModTime().UnixMilli(),
				})
			}
			sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
			if filename == "" || filename == "." || filename == string(filepath.Separator) {
				response.UnprocessableEntity(c, "filename must be string")
				return
			}
			data, err := os.ReadFile(filepath.Join(d.LogDir, filename))
			if err != nil {
				response.NotFoundMsg(c, "log file not exists")
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})
	}
}

func formatByteSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
