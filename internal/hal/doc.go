// Package hal is the hardware boundary of SporeHut Core.
//
// It defines the two ports the controller depends on and their
// implementations:
//
//   - Actuator drives one relay pin active or inactive. GPIORelays talks to
//     the Raspberry Pi header through periph.io; MemoryActuator keeps the
//     pin levels in memory for simulation and tests.
//   - Sensor returns a fresh environment Reading (CO2, temperature,
//     relative humidity). SCD41 reads a Sensirion SCD41 over I2C;
//     SimulatedSensor produces plausible readings off-device.
//
// The relay board used by SporeHut is active-low: driving a pin LOW
// energises the relay. GPIORelays handles the inversion so callers only
// ever speak in terms of Activate and Deactivate.
package hal
