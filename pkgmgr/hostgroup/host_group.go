package hostgroup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/steelcutops/pkgmgr/pkgmgr/host"
)

type HostGroup struct {
	sync.RWMutex
	Hosts map[string]*host.Host
}

// Action is run once per host by Run.
type Action func(ctx context.Context, h *host.Host) error

// NewHostGroup creates a new HostGroup with the given hosts.
func NewHostGroup(hosts ...*host.Host) *HostGroup {
	hostMap := make(map[string]*host.Host)
	for _, h := range hosts {
		hostMap[h.Hostname] = h
	}
	return &HostGroup{Hosts: hostMap}
}

// AddHost adds a host to the HostGroup.
func (hg *HostGroup) AddHost(h *host.Host) {
	hg.Lock()
	defer hg.Unlock()
	hg.Hosts[h.Hostname] = h
}

// RemoveHost removes a host from the HostGroup by its hostname.
func (hg *HostGroup) RemoveHost(hostname string) {
	hg.Lock()
	defer hg.Unlock()
	delete(hg.Hosts, hostname)
}

// HasHost checks if a host with the given hostname exists in the HostGroup.
func (hg *HostGroup) HasHost(hostname string) bool {
	hg.RLock()
	defer hg.RUnlock()
	_, exists := hg.Hosts[hostname]
	return exists
}

// Hostnames returns the hostnames in the group, sorted.
func (hg *HostGroup) Hostnames() []string {
	hg.RLock()
	defer hg.RUnlock()
	names := make([]string, 0, len(hg.Hosts))
	for name := range hg.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run applies action to every host with at most maxConcurrency hosts in
// flight. Operations on one host are never run in parallel by Run; every
// failing host contributes one error to the returned *multierror.Error.
func (hg *HostGroup) Run(ctx context.Context, action Action, maxConcurrency int) error {
	hg.RLock()
	hosts := make([]*host.Host, 0, len(hg.Hosts))
	for _, h := range hg.Hosts {
		hosts = append(hosts, h)
	}
	hg.RUnlock()

	if maxConcurrency <= 0 || maxConcurrency > len(hosts) {
		maxConcurrency = len(hosts)
	}

	sem := make(chan struct{}, maxConcurrency)
	errCh := make(chan error, len(hosts))
	var wg sync.WaitGroup

	for _, hst := range hosts {
		wg.Add(1)
		go func(h *host.Host) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := action(ctx, h); err != nil {
				errCh <- fmt.Errorf("host %s: %w", h.Hostname, err)
			}
		}(hst)
	}

	wg.Wait()
	close(errCh)

	var result *multierror.Error
	for err := range errCh {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
