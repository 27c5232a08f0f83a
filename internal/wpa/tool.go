package wpa

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tool issues typed supplicant commands over a Requester.
type Tool struct {
	r Requester
}

// NewTool wraps r.
func NewTool(r Requester) *Tool {
	return &Tool{r: r}
}

func (t *Tool) ok(command string) error {
	reply, err := t.r.Request(command)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, "OK") {
		return errors.Wrapf(ErrFailed, "%s: %q", command, strings.TrimSpace(reply))
	}
	return nil
}

func (t *Tool) text(command string) (string, error) {
	reply, err := t.r.Request(command)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(reply, "FAIL") {
		return "", errors.Wrap(ErrFailed, command)
	}
	return reply, nil
}

func idArg(id int) string {
	if id < 0 {
		return "all"
	}
	return strconv.Itoa(id)
}

// Ping reports whether the daemon answers PONG.
func (t *Tool) Ping() bool {
	reply, err := t.r.Request("PING")
	return err == nil && strings.HasPrefix(reply, "PONG")
}

func (t *Tool) Status() (string, error) {
	return t.text("STATUS")
}

func (t *Tool) ListNetworks() (string, error) {
	return t.text("LIST_NETWORKS")
}

func (t *Tool) ScanResults() (string, error) {
	return t.text("SCAN_RESULTS")
}

func (t *Tool) Scan() error {
	return t.ok("SCAN")
}

func (t *Tool) Reassociate() error {
	return t.ok("REASSOCIATE")
}

func (t *Tool) Reconnect() error {
	return t.ok("RECONNECT")
}

func (t *Tool) Disconnect() error {
	return t.ok("DISCONNECT")
}

func (t *Tool) Reconfigure() error {
	return t.ok("RECONFIGURE")
}

func (t *Tool) SaveConfig() error {
	return t.ok("SAVE_CONFIG")
}

func (t *Tool) Terminate() error {
	return t.ok("TERMINATE")
}

// BSS queries one BSS record by BSSID or index.
func (t *Tool) BSS(ref string) (string, error) {
	return t.text("BSS " + ref)
}

// AddNetwork allocates an empty network profile and returns its id.
func (t *Tool) AddNetwork() (int, error) {
	reply, err := t.text("ADD_NETWORK")
	if err != nil {
		return -1, err
	}
	id, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return -1, errors.Wrapf(ErrFailed, "ADD_NETWORK: %q", reply)
	}
	return id, nil
}

// RemoveNetwork removes one profile, or all when id is negative.
func (t *Tool) RemoveNetwork(id int) error {
	return t.ok("REMOVE_NETWORK " + idArg(id))
}

func (t *Tool) SelectNetwork(id int) error {
	return t.ok("SELECT_NETWORK " + idArg(id))
}

func (t *Tool) EnableNetwork(id int) error {
	return t.ok("ENABLE_NETWORK " + idArg(id))
}

func (t *Tool) DisableNetwork(id int) error {
	return t.ok("DISABLE_NETWORK " + idArg(id))
}

// SetNetwork sets a variable to a raw token such as a key_mgmt list.
func (t *Tool) SetNetwork(id int, variable, value string) error {
	return t.ok("SET_NETWORK " + strconv.Itoa(id) + " " + variable + " " + value)
}

// SetNetworkInt sets a numeric variable.
func (t *Tool) SetNetworkInt(id int, variable string, value int) error {
	return t.SetNetwork(id, variable, strconv.Itoa(value))
}

// SetNetworkString sets a string variable, quoting the value.
func (t *Tool) SetNetworkString(id int, variable, value string) error {
	return t.SetNetwork(id, variable, `"`+value+`"`)
}

// GetNetwork reads a variable. Quoted string values are unquoted.
func (t *Tool) GetNetwork(id int, variable string) (string, error) {
	reply, err := t.text("GET_NETWORK " + strconv.Itoa(id) + " " + variable)
	if err != nil {
		return "", err
	}
	reply = strings.TrimRight(reply, "\n")
	if len(reply) >= 2 && reply[0] == '"' && reply[len(reply)-1] == '"' {
		reply = reply[1 : len(reply)-1]
	}
	return Decode(reply), nil
}
