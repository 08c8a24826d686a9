package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/service/report"
	"github.com/vladislavdragonenkov/r4c/internal/service/robots"
)

const (
	maxBodyBytes = 1 << 20
	tracerName   = "r4c/httpapi"
)

// RobotCreator создаёт робота.
type RobotCreator interface {
	CreateRobot(ctx context.Context, in robots.CreateRobotInput) (domain.Robot, error)
}

// ReportBuilder строит файл недельного отчёта.
type ReportBuilder interface {
	LastWeekXLSX(ctx context.Context) ([]byte, error)
}

// OrderCreator регистрирует заказ клиента.
type OrderCreator interface {
	CreateOrder(ctx context.Context, email, serial string) (domain.Order, error)
}

// Handler содержит обработчики HTTP API.
type Handler struct {
	robots  RobotCreator
	reports ReportBuilder
	orders  OrderCreator
	logger  *log.Entry
}

// NewHandler создаёт обработчики. logger может быть nil.
func NewHandler(robots RobotCreator, reports ReportBuilder, orders OrderCreator, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &Handler{robots: robots, reports: reports, orders: orders, logger: logger}
}

// CreateRobot обрабатывает POST /robots/create/.
func (h *Handler) CreateRobot(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateRobot")
	defer span.End()

	fields, ok := decodeObject(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	robot, err := h.robots.CreateRobot(ctx, robots.CreateRobotInput{
		Model:   fieldText(fields["model"]),
		Version: fieldText(fields["version"]),
		Created: fieldText(fields["created"]),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.writeError(c, err)
		return
	}

	span.SetAttributes(attribute.String("robot.serial", robot.Serial))
	c.JSON(http.StatusCreated, gin.H{
		"message": "Robot created succesfully",
		"id":      robot.ID,
	})
}

// DownloadRobotsSummary отдаёт недельную сводку: GET /robots/download_robots_summary/.
func (h *Handler) DownloadRobotsSummary(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "DownloadRobotsSummary")
	defer span.End()

	data, err := h.reports.LastWeekXLSX(ctx)
	if errors.Is(err, domain.ErrEmptyWorkbook) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report generation failed: " + domain.Cause(err)})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentTypeXLSX, data)
}

type createOrderRequest struct {
	Email       string `json:"email"`
	RobotSerial string `json:"robot_serial"`
}

// CreateOrder обрабатывает POST /orders/.
func (h *Handler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req createOrderRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	order, err := h.orders.CreateOrder(ctx, req.Email, req.RobotSerial)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          order.ID,
		"customer_id": order.CustomerID,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.Cause(err)})
	case domain.IsStoreError(err):
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + domain.Cause(err)})
	default:
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("unexpected failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected error: " + err.Error()})
	}
}

// decodeObject читает тело запроса как JSON-объект. Числа сохраняются в исходной записи.
func decodeObject(c *gin.Context) (map[string]any, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	// После объекта допустимы только пробельные символы.
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return fields, true
}

// fieldText приводит значение поля к строке. Отсутствующее и "ложное"
// значение (0, false, пустой массив или объект) даёт "".
func fieldText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return fmt.Sprint(v)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case []any:
		if len(v) == 0 {
			return ""
		}
		return fmt.Sprint(v)
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
