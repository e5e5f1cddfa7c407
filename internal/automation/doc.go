// Package automation runs periodic triggers that feed commands to the
// device owner.
//
// A Trigger is a Condition plus a list of Actions. The Engine evaluates
// each trigger in its own goroutine every period (5s by default) against
// an explicit next-check time, and runs the actions when the condition
// holds. Actions send fire-and-forget commands through the controller
// client and never touch device state directly.
//
// The stock humidity triggers keep a grow tent in band:
//
//	humidity < low  (90%)  -> enable FOGGER, enable FOGGER_FAN
//	humidity > high (98%)  -> disable FOGGER, disable FOGGER_FAN
//
// Between the thresholds neither trigger fires, giving the hysteresis that
// stops the fogger chattering. HumidityTriggers rejects high <= low.
//
// # Usage
//
//	engine := automation.NewEngine(5*time.Second, logger)
//	triggers, err := automation.HumidityTriggers(cfg, sensor, func(id string) automation.Dispatcher {
//	    return client.WithSource("trigger:" + id)
//	})
//	for _, t := range triggers {
//	    engine.Register(t)
//	}
//	go engine.Run(ctx)
package automation
