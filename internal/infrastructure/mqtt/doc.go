// Package mqtt connects the simulator to an MQTT broker.
//
// When mqtt.enabled is set the simulator publishes its sensor readings and
// actuator state, keeps a retained online/offline status (with LWT), and
// accepts control commands on its command topic:
//
//	esp32sim/<device>/sensors
//	esp32sim/<device>/state
//	esp32sim/<device>/status
//	esp32sim/<device>/command
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Device.Name)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.Command(), 1, func(topic string, payload []byte) error {
//	    return handleCommand(payload)
//	})
//	err = client.PublishJSON(topics.Sensors(), reading, false)
//
// Auto-reconnect uses paho's backoff between reconnect.initial_delay and
// reconnect.max_delay; subscriptions are restored after each reconnect.
package mqtt
