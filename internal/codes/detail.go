package codes

// Registrar is the part of Registry DetailSync needs.
type Registrar interface {
	Register(id string, fn RefreshFunc)
}

// DetailSync mirrors the entry shown in the detail panel against the ticks
// that update its list row, so both always show the same code.
type DetailSync struct {
	reg  Registrar
	open string
	view DetailView
}

// NewDetailSync returns a sync with no open entry.
func NewDetailSync(reg Registrar) *DetailSync {
	return &DetailSync{reg: reg}
}

// Open makes id the open entry and refreshes it at once through fn,
// replacing whatever schedule the entry had.
func (d *DetailSync) Open(id string, fn RefreshFunc) {
	d.open = id
	d.view = DetailView{Row: Row{Entry: Entry{ID: id}}}
	d.reg.Register(id, fn)
}

// Close clears the open entry and returns it. Its schedule is left alone.
func (d *DetailSync) Close() string {
	id := d.open
	d.open = ""
	d.view = DetailView{}
	return id
}

// Current returns the open entry.
func (d *DetailSync) Current() (string, bool) {
	return d.open, d.open != ""
}

// IsOpen reports whether id is the open entry.
func (d *DetailSync) IsOpen(id string) bool {
	return d.open != "" && d.open == id
}

// Observe takes the row produced by a tick. When it belongs to the open
// entry the detail view is updated to the same state and returned.
func (d *DetailSync) Observe(row Row) (DetailView, bool) {
	if !d.IsOpen(row.Entry.ID) {
		return DetailView{}, false
	}
	d.view.Row = row
	return d.view, true
}

// SetDetails stores the secret and QR image of id if it is still open.
func (d *DetailSync) SetDetails(id string, det Details) (DetailView, bool) {
	if !d.IsOpen(id) {
		return DetailView{}, false
	}
	d.view.Secret = det.Secret
	d.view.QRCode = det.QRCode
	d.view.Loaded = true
	return d.view, true
}

// View returns the current detail view.
func (d *DetailSync) View() (DetailView, bool) {
	return d.view, d.open != ""
}
