package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

const (
	NumActiveConnections    = "NumActiveConnections"
	NumOnlineUsers          = "NumOnlineUsers"
	NumActiveRooms          = "NumActiveRooms"
	NotificationsCreated    = "NotificationsCreated"
	NotificationsDelivered  = "NotificationsDelivered"
	NotificationsFailed     = "NotificationsFailed"
	HandshakesRejected      = "HandshakesRejected"
	MessagesDroppedSlowPeer = "MessagesDroppedSlowPeer"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
	done       chan struct{}
	stopOnce   sync.Once
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a new stats updater and serves its metrics on
// GET /debug/vars. The map is not published to the global expvar registry so
// that more than one updater can exist per process.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
		done:       make(chan struct{}),
		vars:       new(expvar.Map).Init(),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
}

func (su *StatsUpdater) updateMetrics() {
	for {
		select {
		case req := <-su.updateChan:
			metric, ok := su.vars.Get(req.name).(*expvar.Int)
			if !ok {
				continue
			}

			metric.Add(int64(req.value))
		case <-su.done:
			return
		}
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.update(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.update(name, -1)
}

// update is a no-op once the updater is stopped.
func (su *StatsUpdater) update(name string, value int) {
	select {
	case <-su.done:
		return
	default:
	}

	select {
	case su.updateChan <- &metricsUpdateReq{name: name, value: value}:
	case <-su.done:
	}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	if su.vars.Get(name) != nil {
		return
	}
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() {
		close(su.done)
	})
}
