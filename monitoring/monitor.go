// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/mem/overlay"
	"github.com/sarchlab/ocsim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Runner is a simulation that can be paused.
type Runner interface {
	Pause()
	Continue()
	CurrentCycle() uint64
}

// Cache is a cache that the monitor can inspect.
type Cache interface {
	Name() string
	NumSets() int
	NumWays() int
	Slot(loc overlay.Location) overlay.Slot
	SetString(set int) string
	Stats() overlay.Stats
}

// Monitor turns a simulation into a server that allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	runner      Runner
	caches      []Cache
	portNumber  int
	openBrowser bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open the page in a browser once started.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterRunner registers the simulation that the monitor controls.
func (m *Monitor) RegisterRunner(r Runner) {
	m.runner = r
}

// RegisterCache registers a cache to be monitored.
func (m *Monitor) RegisterCache(c Cache) {
	m.caches = append(m.caches, c)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
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

// Router returns the handler of all the monitoring routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.resume)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_caches", m.listCaches)
	r.HandleFunc("/api/cache/{name}", m.cacheDetails)
	r.HandleFunc("/api/stats/{name}", m.cacheStats)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/set/{name}/{set:[0-9]+}", m.setDump)
	r.HandleFunc("/api/sets/{name}", m.setOccupancy)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

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
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return port
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	if m.runner == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	m.runner.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	if m.runner == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	m.runner.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var now uint64
	if m.runner != nil {
		now = m.runner.CurrentCycle()
	}

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) listCaches(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, c := range m.caches {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", c.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) cacheDetails(w http.ResponseWriter, r *http.Request) {
	c := m.findCacheOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) cacheStats(w http.ResponseWriter, r *http.Request) {
	c := m.findCacheOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	bytes, err := json.Marshal(c.Stats())
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type fieldReq struct {
	CacheName string `json:"cache_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

// fieldValue reports one field of the statistics of a cache, such as
// "ShapeCounts.1".
func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	c := m.findCacheOr404(w, req.CacheName)
	if c == nil {
		return
	}

	elem, err := walkFields(c.Stats(), req.FieldName)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	bytes, err := json.Marshal(elem.Interface())
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) setDump(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c := m.findCacheOr404(w, vars["name"])
	if c == nil {
		return
	}

	set, err := strconv.Atoi(vars["set"])
	if err != nil || set >= c.NumSets() {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Set %s not found", vars["set"])
		return
	}

	fmt.Fprint(w, c.SetString(set))
}

// SetOccupancy is the number of bytes and lines held in a set.
type SetOccupancy struct {
	Set      int `json:"set"`
	Bytes    int `json:"bytes"`
	Capacity int `json:"capacity"`
	Lines    int `json:"lines"`
}

func (m *Monitor) setOccupancy(w http.ResponseWriter, r *http.Request) {
	c := m.findCacheOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	sortMethod, limit, offset, err := parseSetParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	sets := sortAndSelectSets(occupancyOf(c), sortMethod, limit, offset)

	bytes, err := json.Marshal(sets)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func parseSetParams(r *http.Request) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "bytes"
	}

	if sortMethod != "bytes" && sortMethod != "lines" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `bytes` and `lines`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	if limit < 0 || offset < 0 {
		return sortMethod, limit, offset, errors.New("negative limit or offset")
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	return strconv.Atoi(str)
}

func occupancyOf(c Cache) []SetOccupancy {
	sets := make([]SetOccupancy, c.NumSets())

	for set := range sets {
		sets[set].Set = set
		sets[set].Capacity = c.NumWays() * mem.LineSize

		for way := 0; way < c.NumWays(); way++ {
			s := c.Slot(overlay.Location{Set: set, Way: way})
			sets[set].Bytes += s.Used()
			sets[set].Lines += s.NumValid()
		}
	}

	return sets
}

// sortAndSelectSets orders the sets from the fullest and returns the page
// selected by offset and limit. A limit of 0 selects all the remaining sets.
func sortAndSelectSets(
	sets []SetOccupancy,
	sortMethod string,
	limit, offset int,
) []SetOccupancy {
	sorted := make([]SetOccupancy, len(sets))
	copy(sorted, sets)

	key := func(s SetOccupancy) (int, int) {
		if sortMethod == "lines" {
			return s.Lines, s.Bytes
		}

		return s.Bytes, s.Lines
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		pi, si := key(sorted[i])
		pj, sj := key(sorted[j])

		if pi != pj {
			return pi > pj
		}

		return si > sj
	})

	if offset > len(sorted) {
		offset = len(sorted)
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot walk into field %q", e.field)
}

func walkFields(root interface{}, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(root)

	fieldNames := strings.Split(fields, ".")
	if fields == "" {
		fieldNames = nil
	}

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldFormatError{fieldNames[0]}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice, reflect.Array:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) findCacheOr404(w http.ResponseWriter, name string) Cache {
	for _, c := range m.caches {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Cache not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
