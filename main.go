package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"dataquality-service/api"
	"dataquality-service/logger"
	"dataquality-service/service"
	"dataquality-service/service/config"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/report"
	"dataquality-service/service/scheduler"

	"github.com/go-chi/chi/v5"
)

var (
	PORT     = 8080
	RUN_MODE = "once"
)

// 进程退出码：0=校验通过，1=存在blocking违规，2=数据集访问错误
const (
	exitPassed      = 0
	exitFailed      = 1
	exitAccessError = 2
)

func init() {
	logger.InitLogger()

	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("RUN_MODE"); val != "" {
		RUN_MODE = val
	}
}

// @title 数据质量校验服务 API
// @version 1.0
// @description 出租车行程数据集的质量校验与分析服务，提供规则校验、运行历史和统计报表功能
func main() {
	switch RUN_MODE {
	case "serve":
		runServe()
	default:
		os.Exit(runOnce())
	}
}

// runOnce 执行一次校验，把报告写到stdout后以退出码表达结论
func runOnce() int {
	rep, _, err := service.GlobalValidationService.RunValidation(context.Background(), "cli")
	if err != nil {
		log.Printf("校验中止: %v", err)
		return exitAccessError
	}

	format := config.GetEnvWithDefault("REPORT_FORMAT", "text")
	if format == "json" {
		out, err := report.RenderJSON(rep)
		if err != nil {
			log.Printf("报告渲染失败: %v", err)
			return exitAccessError
		}
		fmt.Println(out)
	} else {
		fmt.Print(report.RenderText(rep))
	}

	if !rep.Passed {
		return exitFailed
	}
	return exitPassed
}

// runServe 以常驻服务方式运行：HTTP API + 定时校验
func runServe() {
	mux := chi.NewRouter()
	api.InitRoute(mux)

	// 定时校验，置空VALIDATION_CRON可关闭
	cronExpr := config.GetEnvWithDefault("VALIDATION_CRON", "0 0 2 * * *")
	if cronExpr != "" {
		qs := scheduler.NewQualityScheduler(cronExpr, func(ctx context.Context, triggeredBy string) error {
			_, _, err := service.GlobalValidationService.RunValidation(ctx, triggeredBy)
			return err
		})

		// 多实例部署时通过Redis锁防止重复执行
		if os.Getenv("DISTRIBUTED_LOCK_ENABLED") == "true" {
			lock, err := distributed_lock.NewRedisLock()
			if err != nil {
				log.Printf("分布式锁初始化失败，定时校验将不做多实例防重: %v", err)
			} else {
				qs.SetDistributedLock(lock)
				defer lock.Close()
			}
		}

		if err := qs.StartScheduler(); err != nil {
			log.Fatalf("定时校验调度器启动失败: %v", err)
		}
		defer qs.StopScheduler()
	}

	addr := ":" + strconv.Itoa(PORT)
	log.Printf("HTTP服务启动，监听 %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}
