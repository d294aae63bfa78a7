// Package device simulates the state of an ESP32 demo board.
//
// A Simulator owns everything the firmware would keep in RAM: the mutable
// configuration, the actuator outputs and the boot time. Sensor readings
// and Wi-Fi signal strength are generated fresh on every call, inside
// fixed bounds:
//
//	temperature  [20.0, 30.0) °C
//	humidity     [40.0, 60.0) %
//	pressure     [1000.0, 1020.0) hPa
//	wifi_rssi    [-80, -30] dBm
//
// Control commands are checked against fixed allow-lists (led, relay,
// gpio; on, off, toggle). Rebooting restores the configuration defaults,
// turns every actuator off and restarts uptime.
//
// State changes are published as Events to registered Listeners, which is
// how the API websocket, MQTT, InfluxDB and the optional SQLite History
// observe the device.
package device
