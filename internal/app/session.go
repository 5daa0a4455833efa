package app

import (
	"fmt"

	"github.com/samvad-hq/graph-harvester/internal/config"
	"github.com/samvad-hq/graph-harvester/internal/logger"
	"github.com/samvad-hq/graph-harvester/internal/storage"
	"github.com/samvad-hq/graph-harvester/pkg/graph"
	"github.com/samvad-hq/graph-harvester/pkg/httpclient"
)

// NewGraphClient builds a Graph client from config and restores its session.
//
// A token from config wins over the stored one and is persisted when store is
// non-nil; otherwise the stored session, if any, is restored.
func NewGraphClient(cfg *config.Config, store storage.Store, log logger.Logger, restyLog httpclient.Logger) (*graph.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	transport := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
		Debug:     cfg.HTTPDebug,
		Logger:    restyLog,
	})
	client := graph.New(httpclient.NewURLOpener(transport), graph.Options{
		GraphBaseURL:  cfg.GraphBaseURL,
		OAuthEndpoint: cfg.OAuthEndpoint,
	})

	if cfg.AccessToken != "" {
		client.SetAccessToken(cfg.AccessToken)
		if cfg.AccessExpiresIn != "" {
			if err := client.SetAccessExpiresIn(cfg.AccessExpiresIn); err != nil {
				return nil, fmt.Errorf("access_expires_in: %w", err)
			}
		}
		if store == nil {
			log.InfoObj("session loaded from config", "session_meta", sessionMeta(client))
			return client, nil
		}
		if err := store.SaveSession(client.Session()); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		log.InfoObj("session loaded from config", "session_meta", sessionMeta(client))
		return client, nil
	}

	if store == nil {
		return client, nil
	}

	sess, found, err := store.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if found {
		client.Restore(sess)
		log.InfoObj("session restored from storage", "session_meta", sessionMeta(client))
	} else {
		log.WarnObj("no session available; requests will be unauthenticated", "graph_base_url", client.GraphBaseURL())
	}
	return client, nil
}

// sessionMeta describes the session without exposing the token.
func sessionMeta(c *graph.Client) map[string]any {
	return map[string]any{
		"valid":          c.IsSessionValid(),
		"access_expires": c.AccessExpires(),
		"graph_base_url": c.GraphBaseURL(),
	}
}
