/*
 * @module api/controllers/quality_controller
 * @description 数据质量控制器，提供校验触发、运行历史查询和分析汇总接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 校验触发是同步接口，请求返回即代表本次运行完成
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/validation_service.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"dataquality-service/service"
	"dataquality-service/service/dataset"
)

// QualityController 数据质量控制器
type QualityController struct {
	validationService *service.ValidationService
}

// NewQualityController 创建数据质量控制器实例
func NewQualityController() *QualityController {
	return &QualityController{
		validationService: service.GlobalValidationService,
	}
}

// ValidateResponse 校验触发响应结构
type ValidateResponse struct {
	RunID  string      `json:"run_id,omitempty"`
	Report interface{} `json:"report"`
}

// Validate 触发一次数据质量校验
// @Summary 触发数据质量校验
// @Description 同步执行全部规则并返回校验报告
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /quality/validate [post]
func (c *QualityController) Validate(w http.ResponseWriter, r *http.Request) {
	rep, run, err := c.validationService.RunValidation(r.Context(), "api")
	if err != nil {
		status := http.StatusInternalServerError
		if dataset.IsAccessError(err) {
			status = http.StatusServiceUnavailable
		}
		render.Status(r, status)
		render.JSON(w, r, APIResponse{Status: status, Msg: "校验执行失败: " + err.Error()})
		return
	}

	data := ValidateResponse{Report: rep}
	if run != nil {
		data.RunID = run.ID
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "校验完成", Data: data})
}

// GetLatestRun 查询最近一次校验运行
// @Summary 查询最近一次校验运行
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /quality/runs/latest [get]
func (c *QualityController) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.validationService.Store().LatestRun()
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, APIResponse{Status: http.StatusNotFound, Msg: "暂无校验运行记录"})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: run})
}

// GetRunHistory 查询校验运行历史
// @Summary 查询校验运行历史
// @Tags 数据质量
// @Produce json
// @Param limit query int false "返回条数，默认20"
// @Success 200 {object} APIResponse
// @Router /quality/runs [get]
func (c *QualityController) GetRunHistory(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := c.validationService.Store().RunHistory(limit)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: http.StatusInternalServerError, Msg: "查询运行历史失败: " + err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: runs})
}

// GetRunViolations 查询某次运行的违规明细
// @Summary 查询某次运行的违规明细
// @Tags 数据质量
// @Produce json
// @Param id path string true "运行ID"
// @Success 200 {object} APIResponse
// @Router /quality/runs/{id}/violations [get]
func (c *QualityController) GetRunViolations(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	records, err := c.validationService.Store().RunViolations(runID)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: http.StatusInternalServerError, Msg: "查询违规明细失败: " + err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: records})
}

// GetAnalyticsSummary 查询数据集分析汇总
// @Summary 查询数据集分析汇总
// @Description 返回高峰时段、支付分布、区域流量、直方图等描述性统计
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /quality/analytics/summary [get]
func (c *QualityController) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := c.validationService.Analytics().Summary(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if dataset.IsAccessError(err) {
			status = http.StatusServiceUnavailable
		}
		render.Status(r, status)
		render.JSON(w, r, APIResponse{Status: status, Msg: "分析汇总生成失败: " + err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: summary})
}
