package wpatest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Supplicant is a small model of the supplicant's network table and BSS
// list, answering enough of the control protocol for session tests.
type Supplicant struct {
	mu       sync.Mutex
	nextID   int
	networks map[int]map[string]string
	bss      map[string]string
	status   string
	fail     map[string]bool
}

func NewSupplicant() *Supplicant {
	return &Supplicant{
		networks: make(map[int]map[string]string),
		bss:      make(map[string]string),
		fail:     make(map[string]bool),
		status:   "wpa_state=DISCONNECTED\naddress=02:00:00:00:00:01\n",
	}
}

// SetStatus replaces the STATUS reply.
func (s *Supplicant) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// AddBSS registers a BSS record for BSS and SCAN_RESULTS queries.
func (s *Supplicant) AddBSS(bssid, ssid string, level, freq int) {
	s.mu.Lock()
	s.bss[strings.ToLower(bssid)] = fmt.Sprintf("id=1\nbssid=%s\nfreq=%d\nlevel=%d\nflags=[WPA2-PSK-CCMP][ESS]\nssid=%s\n",
		strings.ToLower(bssid), freq, level, ssid)
	s.mu.Unlock()
}

// RemoveBSS forgets a BSS record.
func (s *Supplicant) RemoveBSS(bssid string) {
	s.mu.Lock()
	delete(s.bss, strings.ToLower(bssid))
	s.mu.Unlock()
}

// Fail makes every request with the given verb reply FAIL.
func (s *Supplicant) Fail(verb string) {
	s.mu.Lock()
	s.fail[verb] = true
	s.mu.Unlock()
}

// Network returns a copy of a profile's raw variables.
func (s *Supplicant) Network(id int) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for k, v := range s.networks[id] {
		out[k] = v
	}
	return out
}

// HasNetwork reports whether id exists.
func (s *Supplicant) HasNetwork(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.networks[id]
	return ok
}

func (s *Supplicant) ids() []int {
	ids := make([]int, 0, len(s.networks))
	for id := range s.networks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Handle answers one request.
func (s *Supplicant) Handle(cmd string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := strings.SplitN(cmd, " ", 4)
	verb := fields[0]
	if s.fail[verb] {
		return "FAIL\n"
	}
	switch verb {
	case "PING":
		return "PONG\n"
	case "STATUS":
		return s.status
	case "ADD_NETWORK":
		id := s.nextID
		s.nextID++
		s.networks[id] = map[string]string{}
		return strconv.Itoa(id) + "\n"
	case "LIST_NETWORKS":
		var b strings.Builder
		b.WriteString("network id / ssid / bssid / flags\n")
		for _, id := range s.ids() {
			n := s.networks[id]
			bssid := n["bssid"]
			if bssid == "" {
				bssid = "any"
			}
			fmt.Fprintf(&b, "%d\t%s\t%s\t\n", id, strings.Trim(n["ssid"], `"`), bssid)
		}
		return b.String()
	case "SET_NETWORK":
		if len(fields) < 4 {
			return "FAIL\n"
		}
		n, ok := s.networks[atoi(fields[1])]
		if !ok {
			return "FAIL\n"
		}
		n[fields[2]] = fields[3]
		return "OK\n"
	case "GET_NETWORK":
		if len(fields) < 3 {
			return "FAIL\n"
		}
		n, ok := s.networks[atoi(fields[1])]
		if !ok {
			return "FAIL\n"
		}
		v, ok := n[fields[2]]
		if !ok {
			return "FAIL\n"
		}
		return v
	case "REMOVE_NETWORK", "ENABLE_NETWORK", "DISABLE_NETWORK", "SELECT_NETWORK":
		if len(fields) < 2 {
			return "FAIL\n"
		}
		if fields[1] == "all" {
			if verb == "REMOVE_NETWORK" {
				s.networks = make(map[int]map[string]string)
			}
			return "OK\n"
		}
		id := atoi(fields[1])
		if _, ok := s.networks[id]; !ok {
			return "FAIL\n"
		}
		if verb == "REMOVE_NETWORK" {
			delete(s.networks, id)
		}
		return "OK\n"
	case "SCAN_RESULTS":
		var b strings.Builder
		b.WriteString("bssid / frequency / signal level / flags / ssid\n")
		keys := make([]string, 0, len(s.bss))
		for k := range s.bss {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s\t2412\t-50\t[ESS]\tx\n", k)
		}
		return b.String()
	case "BSS":
		if len(fields) < 2 {
			return "FAIL\n"
		}
		return s.bss[strings.ToLower(fields[1])]
	default:
		return "OK\n"
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return v
}
