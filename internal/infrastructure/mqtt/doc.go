// Package mqtt provides the broker connection used by the climate skill.
//
// The skill sits on the Gray Logic bus between the voice front end and the
// climate devices:
//
//	voice front end → graylogic/voice/intent/climate → climate skill
//	climate skill → graylogic/command/climate/{device} → protocol bridge
//	protocol bridge → graylogic/ack/climate/{device} → climate skill
//	climate skill → graylogic/voice/response/{request} → voice front end
//
// The client reconnects with backoff, restores subscriptions after a
// reconnect, and keeps a retained presence record on
// graylogic/skill/{id}/status (with a Last Will for crashes).
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Skill.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Intents(), 1, handleIntent)
package mqtt
