package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZKMembership registers this node in ZooKeeper and publishes its current
// role state on the node's znode. Leader election itself lives elsewhere;
// this only announces what the node observes about itself.
type ZKMembership struct {
	conn     *zk.Conn
	rootPath string
	local    string // node addr
}

// servers: ["zk1:2181", "zk2:2181"]
func NewZKMembership(servers []string, rootPath, localAddr string) (*ZKMembership, error) {
	conn, _, err := zk.Connect(servers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return &ZKMembership{
		conn:     conn,
		rootPath: rootPath,
		local:    localAddr,
	}, nil
}

func (m *ZKMembership) Close() error {
	m.conn.Close()
	return nil
}

func (m *ZKMembership) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	cur := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = cur + "/" + p
		exists, _, err := m.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = m.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && err != zk.ErrNodeExists {
				return err
			}
		}
	}
	return nil
}

func (m *ZKMembership) nodePath() string {
	return fmt.Sprintf("%s/nodes/%s", m.rootPath, m.local)
}

// RegisterSelf creates an ephemeral znode for this node. The znode data
// carries the node's current role state.
func (m *ZKMembership) RegisterSelf() error {
	if err := m.waitConnected(10 * time.Second); err != nil {
		return err
	}

	if err := m.ensurePath(m.rootPath + "/nodes"); err != nil {
		return fmt.Errorf("ensure nodes path: %w", err)
	}

	_, err := m.conn.Create(m.nodePath(), []byte("follower"), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("create ephemeral node: %w", err)
	}

	slog.Info("registered node in zookeeper", "path", m.nodePath())
	return nil
}

// AnnounceRole updates the znode data with the node's role state
// ("leader", "follower").
func (m *ZKMembership) AnnounceRole(state string) error {
	_, err := m.conn.Set(m.nodePath(), []byte(state), -1)
	if err != nil {
		return fmt.Errorf("set role state: %w", err)
	}
	return nil
}

// Nodes reads the list of live nodes.
func (m *ZKMembership) Nodes() ([]string, error) {
	children, _, err := m.conn.Children(m.rootPath + "/nodes")
	if err != nil {
		return nil, fmt.Errorf("zk children: %w", err)
	}
	return children, nil
}

// WatchNodes runs a loop that watches the /nodes children and invokes fn
// with the live node set on every change.
func (m *ZKMembership) WatchNodes(ctx context.Context, fn func(nodes []string)) {
	go func() {
		for {
			children, _, ch, err := m.conn.ChildrenW(m.rootPath + "/nodes")
			if err != nil {
				slog.Warn("zk ChildrenW error", "error", err)
				time.Sleep(2 * time.Second)
				continue
			}

			fn(children)

			select {
			case ev := <-ch:
				slog.Debug("zk membership event", "event", ev.Type.String())
				// re-read the node list on the next iteration
			case <-ctx.Done():
				slog.Info("zk watch stopped")
				return
			}
		}
	}()
}

func (m *ZKMembership) waitConnected(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		st := m.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("zk: not connected after %s, state=%v", timeout, st)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
