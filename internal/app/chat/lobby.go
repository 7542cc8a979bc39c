package chat

// Lobby is a co-op session advertised by one connection.
// The password is shown to every client; it gates joining in game, not discovery.
type Lobby struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
	Color    string `json:"color"`
}

// LobbyDirectory holds at most one lobby per connection, in the order they were first hosted.
type LobbyDirectory struct {
	lobbies map[*Client]Lobby
	order   []*Client
}

// NewLobbyDirectory returns an empty directory.
func NewLobbyDirectory() *LobbyDirectory {
	return &LobbyDirectory{lobbies: make(map[*Client]Lobby)}
}

// Host creates or replaces the lobby of c. A replaced lobby keeps its position.
func (d *LobbyDirectory) Host(c *Client, lobby Lobby) {
	if _, ok := d.lobbies[c]; !ok {
		d.order = append(d.order, c)
	}
	d.lobbies[c] = lobby
}

// Remove deletes the lobby of c and reports whether one existed.
func (d *LobbyDirectory) Remove(c *Client) bool {
	if _, ok := d.lobbies[c]; !ok {
		return false
	}

	delete(d.lobbies, c)
	for i, other := range d.order {
		if other == c {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the lobby hosted by c.
func (d *LobbyDirectory) Get(c *Client) (Lobby, bool) {
	l, ok := d.lobbies[c]
	return l, ok
}

// Len returns the number of open lobbies.
func (d *LobbyDirectory) Len() int {
	return len(d.order)
}

// List returns every lobby in hosting order. The result is never nil.
func (d *LobbyDirectory) List() []Lobby {
	out := make([]Lobby, 0, len(d.order))
	for _, c := range d.order {
		out = append(out, d.lobbies[c])
	}
	return out
}
