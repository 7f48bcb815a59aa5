// Package influxdb records climate command telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every dispatched
// command becomes a climate_commands point and every handled request a
// climate_requests point, so setpoint history and device reliability can
// be charted next to the home's sensor data.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandResult(influxdb.CommandPoint{
//	    DeviceID: "thermostat-living",
//	    Action:   "set_temperature",
//	    Status:   "ok",
//	    Value:    21.5,
//	})
//
// Writes are non-blocking and batched (batch_size, flush_interval); batch
// errors are delivered to the SetOnError callback.
package influxdb
