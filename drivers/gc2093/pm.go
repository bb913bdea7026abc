package gc2093

// Keep-alive references on sensor power. The first reference runs the
// power-up sequence, the last one released powers down. Streaming, an
// explicit PowerOn and AlwaysOn each hold at most one reference.

func (d *Device) acquire() error {
	if d.users == 0 {
		if err := d.powerOn(); err != nil {
			return err
		}
	}
	d.users++
	return nil
}

func (d *Device) release() {
	if d.users == 0 {
		return
	}
	d.users--
	if d.users == 0 {
		d.powerOff()
	}
}

func (d *Device) powered() bool { return d.power == PowerStatePowered }

// PowerOn takes a keep-alive reference, powering and identifying the sensor
// if nothing else holds it powered. Repeated calls hold a single reference.
func (d *Device) PowerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return nil
	}
	if err := d.acquire(); err != nil {
		return err
	}
	d.held = true
	return nil
}

// PowerOff drops the reference taken by PowerOn. The sensor stays powered
// while streaming or when configured AlwaysOn.
func (d *Device) PowerOff() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.held {
		return
	}
	d.held = false
	d.release()
}

// PowerState reports the current power sequencing state.
func (d *Device) PowerState() PowerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}
