package telemetry

// Hub broadcasts named events. The API websocket hub, the MQTT bridge and
// Influx all implement it.
type Hub interface {
	Broadcast(channel string, payload any)
}

// MultiHub broadcasts to every hub in order. Nil entries are skipped.
type MultiHub []Hub

// Broadcast implements Hub.
func (m MultiHub) Broadcast(channel string, payload any) {
	for _, h := range m {
		if h != nil {
			h.Broadcast(channel, payload)
		}
	}
}
