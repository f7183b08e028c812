package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/config"
	"github.com/orrn/printbridge/internal/core"
)

type WebhookEvent string

const (
	EventJobCompleted         WebhookEvent = "job_completed"
	EventJobFailed            WebhookEvent = "job_failed"
	EventPrinterStatusChanged WebhookEvent = "printer_status_changed"
	EventNotification         WebhookEvent = "notification"
	EventTest                 WebhookEvent = "test"
)

var ErrEndpointNotFound = errors.New("webhook endpoint not found")

type WebhookPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type JobEventData struct {
	JobID        int64  `json:"job_id"`
	PrinterName  string `json:"printer_name"`
	PaperWidth   int    `json:"paper_width"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type PrinterStatusData struct {
	PrinterName string `json:"printer_name"`
	Status      int    `json:"status"`
}

type NotificationData struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}

type webhookTask struct {
	endpoint config.WebhookEndpoint
	event    WebhookEvent
	payload  *WebhookPayload
	attempt  int
}

// WebhookSender forwards bus events to the configured endpoints through a
// bounded queue and a fixed worker pool.
type WebhookSender struct {
	endpoints  []config.WebhookEndpoint
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	workers    int
	queue      chan *webhookTask
	stopCh     chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

func NewWebhookSender(cfg config.WebhooksConfig) *WebhookSender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &WebhookSender{
		endpoints: cfg.Endpoints,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		workers:    cfg.Workers,
		queue:      make(chan *webhookTask, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (s *WebhookSender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *WebhookSender) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// HandleEvent maps bus events to webhook events. It never blocks.
func (s *WebhookSender) HandleEvent(e core.Event) {
	switch e.Kind {
	case core.EventJobFinished:
		if e.Job == nil {
			return
		}
		event := EventJobCompleted
		if e.Job.Status == core.JobStatusFailed {
			event = EventJobFailed
		}
		s.enqueue(event, e.Time, &JobEventData{
			JobID:        e.Job.ID,
			PrinterName:  e.Job.PrinterName,
			PaperWidth:   e.Job.PaperWidth,
			Status:       string(e.Job.Status),
			ErrorMessage: e.Job.Error,
		})

	case core.EventPrinterStatusChanged:
		if e.Printer == nil {
			return
		}
		s.enqueue(EventPrinterStatusChanged, e.Time, &PrinterStatusData{
			PrinterName: e.Printer.Name,
			Status:      e.Printer.Status,
		})

	case core.EventNotification:
		if e.Notification == nil {
			return
		}
		s.enqueue(EventNotification, e.Time, &NotificationData{
			Title:    e.Notification.Title,
			Message:  e.Notification.Message,
			Critical: e.Notification.Critical,
		})
	}
}

func (s *WebhookSender) enqueue(event WebhookEvent, at time.Time, data interface{}) {
	if at.IsZero() {
		at = time.Now()
	}

	for _, endpoint := range s.endpoints {
		if !subscribed(endpoint, event) {
			continue
		}

		task := &webhookTask{
			endpoint: endpoint,
			event:    event,
			payload: &WebhookPayload{
				Event:     string(event),
				Timestamp: at,
				Data:      data,
			},
		}

		select {
		case s.queue <- task:
		default:
			log.WithFields(log.Fields{
				"webhook": endpoint.Name,
				"event":   event,
			}).Warn("webhook queue full, dropping event")
		}
	}
}

// subscribed reports whether the endpoint wants event. An empty event list
// means all events.
func subscribed(endpoint config.WebhookEndpoint, event WebhookEvent) bool {
	if len(endpoint.Events) == 0 {
		return true
	}
	for _, e := range endpoint.Events {
		if WebhookEvent(e) == event {
			return true
		}
	}
	return false
}

func (s *WebhookSender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case task := <-s.queue:
			if err := s.sendWithRetry(task); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"worker":   id,
					"webhook":  task.endpoint.Name,
					"event":    task.event,
					"attempts": task.attempt,
				}).Error("failed to deliver webhook")
			}
		}
	}
}

func (s *WebhookSender) sendWithRetry(task *webhookTask) error {
	var lastErr error
	for task.attempt < s.retryCount {
		task.attempt++

		err := s.sendRequest(task.endpoint, task.payload)
		if err == nil {
			return nil
		}

		lastErr = err

		if isClientError(err) {
			return err
		}

		if task.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(task.attempt-1))
			log.WithError(err).WithFields(log.Fields{
				"webhook": task.endpoint.Name,
				"attempt": task.attempt,
				"backoff": backoff,
			}).Warn("webhook delivery failed, retrying")

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http error: %d", e.Code)
}

func (s *WebhookSender) sendRequest(endpoint config.WebhookEndpoint, payload *WebhookPayload) error {
	payloadBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	signature := ""
	if endpoint.Secret != "" {
		signature = signPayload(payloadBytes, endpoint.Secret)
	}

	body := *payload
	body.Signature = signature

	fullPayload, err := json.Marshal(&body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint.URL, bytes.NewReader(fullPayload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", payload.Event)
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{Code: resp.StatusCode}
	}

	return nil
}

// Endpoints returns the configured endpoints with secrets removed.
func (s *WebhookSender) Endpoints() []config.WebhookEndpoint {
	out := make([]config.WebhookEndpoint, len(s.endpoints))
	for i, ep := range s.endpoints {
		ep.Secret = ""
		ep.Events = append([]string(nil), ep.Events...)
		out[i] = ep
	}
	return out
}

// SendTest delivers one signed test payload to the named endpoint without
// retrying.
func (s *WebhookSender) SendTest(name string) error {
	for _, endpoint := range s.endpoints {
		if endpoint.Name != name {
			continue
		}
		return s.sendRequest(endpoint, &WebhookPayload{
			Event:     string(EventTest),
			Timestamp: time.Now(),
			Data: NotificationData{
				Title:   "Webhook test",
				Message: "printbridge can reach this endpoint",
			},
		})
	}
	return ErrEndpointNotFound
}

func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}
