// Package monitoring serves the live state of the flight nodes over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/monitoring/web"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/node"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Monitor turns a set of nodes into a web server. The nodes are only read
// while the monitor lock is held, so whoever steps them must do so through
// Do.
type Monitor struct {
	lock       sync.Mutex
	clock      timing.TimeTeller
	nodes      []*node.Node
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithClock sets the clock that stamps the reports.
func (m *Monitor) WithClock(c timing.TimeTeller) *Monitor {
	m.clock = c
	return m
}

// RegisterNode registers a node to be monitored.
func (m *Monitor) RegisterNode(n *node.Node) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.nodes = append(m.nodes, n)
}

// Do runs f while no request is reading the nodes.
func (m *Monitor) Do(f func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	f()
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{name}", m.nodeDetails)
	r.HandleFunc("/api/node/{name}/diagnostics", m.nodeDiagnostics)
	r.HandleFunc("/api/node/{name}/tasks", m.nodeTasks)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.Dashboard()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr, "Monitoring nodes with http://localhost:%d\n", port)

	r := m.router()

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) currentTick() timing.Tick {
	if m.clock == nil {
		return 0
	}

	return m.clock.Now()
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.currentTick())
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	names := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		names = append(names, n.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	n := m.findNodeOr404(w, mux.Vars(r)["name"])
	if n == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(n)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) nodeDiagnostics(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	n := m.findNodeOr404(w, mux.Vars(r)["name"])
	if n == nil {
		return
	}

	writeJSON(w, n.Diagnostics(m.currentTick()))
}

func (m *Monitor) nodeTasks(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	n := m.findNodeOr404(w, mux.Vars(r)["name"])
	if n == nil {
		return
	}

	writeJSON(w, n.Diagnostics(m.currentTick()).Tasks)
}

type fieldReq struct {
	NodeName  string `json:"node_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	n := m.findNodeOr404(w, req.NodeName)
	if n == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(n)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findNodeOr404(w http.ResponseWriter, name string) *node.Node {
	for _, n := range m.nodes {
		if n.Name() == name {
			return n
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Node not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	process, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
