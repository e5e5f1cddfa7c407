package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sporehut/sporehut-core/internal/infrastructure/config"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second
	keepAlive        = 60 * time.Second

	// disconnectQuiesceMS lets in-flight work drain on Close.
	disconnectQuiesceMS = 1000

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// Status values and reasons published on the system status topic.
const (
	statusOnline         = "online"
	statusOffline        = "offline"
	reasonShutdown       = "graceful_shutdown"
	reasonUnexpectedDrop = "unexpected_disconnect"
)

// brokerURL is tcp://host:port, or ssl:// when TLS is on.
func brokerURL(b config.MQTTBrokerConfig) *url.URL {
	u := &url.URL{Scheme: "tcp", Host: net.JoinHostPort(b.Host, strconv.Itoa(b.Port))}
	if b.TLS {
		u.Scheme = "ssl"
	}
	return u
}

// clientOptions translates the mqtt config section into paho options,
// including a retained offline will so subscribers notice a crash.
//
// Clean sessions are used; the client restores its own subscriptions
// after every reconnect.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker).String()).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	will := statusMessage(cfg.Broker.ClientID, statusOffline, reasonUnexpectedDrop)
	opts.SetBinaryWill(Topics{}.SystemStatus(), will, 1, true)
	return opts
}

// systemStatus is the retained document on sporehut/system/status.
type systemStatus struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusMessage(clientID, status, reason string) []byte {
	// Only string fields, so Marshal cannot fail.
	b, _ := json.Marshal(systemStatus{ //nolint:errcheck // see above
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}
