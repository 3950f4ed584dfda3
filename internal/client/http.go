package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"golang.org/x/net/proxy"
)

var (
	directClient *http.Client
	proxyClients = map[string]*http.Client{}
	clientLock   sync.RWMutex
)

// ForChannel 返回渠道对应的 http.Client，按代理地址缓存复用
func ForChannel(channel *model.Channel) (*http.Client, error) {
	if channel == nil {
		return nil, fmt.Errorf("channel is nil")
	}
	if channel.ChannelProxy == nil || *channel.ChannelProxy == "" {
		return Direct(), nil
	}
	return forProxy(*channel.ChannelProxy)
}

func Direct() *http.Client {
	clientLock.RLock()
	if directClient != nil {
		defer clientLock.RUnlock()
		return directClient
	}
	clientLock.RUnlock()

	clientLock.Lock()
	defer clientLock.Unlock()
	if directClient == nil {
		directClient = &http.Client{Transport: http.DefaultTransport}
	}
	return directClient
}

func forProxy(proxyURL string) (*http.Client, error) {
	clientLock.RLock()
	if c, ok := proxyClients[proxyURL]; ok {
		clientLock.RUnlock()
		return c, nil
	}
	clientLock.RUnlock()

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	var transport *http.Transport
	switch u.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(u)}
	case "socks5":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create socks5 dialer: %w", err)
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	c := &http.Client{Transport: transport}
	clientLock.Lock()
	proxyClients[proxyURL] = c
	clientLock.Unlock()
	return c, nil
}
