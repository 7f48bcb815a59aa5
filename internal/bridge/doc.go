// Package bridge wires the climate engine to the Gray Logic MQTT bus.
//
// Bridge subscribes to voice intents, hands each one to the engine on its
// own goroutine and publishes the reply. MQTTDispatcher implements
// climate.Dispatcher: it publishes command envelopes (or a device's own
// payload template) and waits for the matching acknowledgement.
//
//	disp := bridge.NewMQTTDispatcher(client, bridge.DispatcherOptions{
//	    Source:   cfg.Skill.ID,
//	    QoS:      1,
//	    AwaitAck: cfg.Dispatch.AwaitAck,
//	    Topics:   client.Topics(),
//	})
//	engine := climate.NewEngine(resolver, renderer, disp, climate.Config{})
//	b, _ := bridge.New(bridge.Options{Bus: client, Handler: engine, Dispatcher: disp})
//	err := b.Start()
package bridge
