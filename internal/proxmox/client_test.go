package proxmox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pvelab/provctl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		Endpoint:    server.URL,
		TokenID:     "ops@pam!provctl",
		TokenSecret: "secret",
	})
	require.NoError(t, err)

	return client
}

func Test_New_NoCredentials(t *testing.T) {
	_, err := New(Config{Endpoint: "https://pve.example:8006"})

	assert.ErrorIs(t, err, ErrNoCredentials)
}

func Test_TokenAuthHeader(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PVEAPIToken=ops@pam!provctl=secret", r.Header.Get("Authorization"))
		assert.Equal(t, APIPrefix+"/version", r.URL.Path)

		_, _ = w.Write([]byte(`{"data":{"version":"8.2.4","release":"8.2"}}`))
	})

	version, err := client.Version(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "8.2.4", version.Version)
}

func Test_Login_TicketAndCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case APIPrefix + "/access/ticket":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "root@pam", r.PostForm.Get("username"))
			assert.Equal(t, "hunter2", r.PostForm.Get("password"))

			_, _ = w.Write([]byte(`{"data":{"ticket":"PVE:root@pam:token","CSRFPreventionToken":"csrf-token"}}`))
		case APIPrefix + "/cluster/ha/resources":
			cookie, err := r.Cookie("PVEAuthCookie")
			require.NoError(t, err)
			assert.Equal(t, "PVE:root@pam:token", cookie.Value)
			assert.Equal(t, "csrf-token", r.Header.Get("CSRFPreventionToken"))

			_, _ = w.Write([]byte(`{"data":null}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		Endpoint: server.URL,
		Username: "root@pam",
		Password: "hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, client.Login(context.Background()))

	enrollment := models.HAEnrollment{SID: "vm:142", State: "started", Comment: "cust-web01"}
	assert.NoError(t, client.CreateHAResource(context.Background(), enrollment))
}

func Test_Nodes(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"node":"pve1","status":"online"},{"node":"pve2","status":"online"}]}`))
	})

	nodes, err := client.Nodes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.ClusterNode{
		{Name: "pve1", Status: "online"},
		{Name: "pve2", Status: "online"},
	}, nodes)
}

func Test_NextID(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"142"}`))
	})

	id, err := client.NextID(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 142, id)
}

func Test_VMConfig(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIPrefix+"/nodes/pve1/qemu/142/config", r.URL.Path)

		_, _ = w.Write([]byte(`{"data":{"name":"cust-web01","net0":"virtio=BC:24:11:D2:63:7E,bridge=vmbr0"}}`))
	})

	config, err := client.VMConfig(context.Background(), "pve1", 142)
	require.NoError(t, err)

	assert.Equal(t, "virtio=BC:24:11:D2:63:7E,bridge=vmbr0", config.Net0)
}

func Test_RejectionCarriesClusterMessage(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`storage 'nope' does not exist`))
	})

	err := client.CreateVM(context.Background(), "pve1", nil)
	require.Error(t, err)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)

	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "storage 'nope' does not exist")
	assert.Contains(t, err.Error(), "storage 'nope' does not exist")
}

func Test_Bridges_QueryScope(t *testing.T) {
	client := newTokenClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIPrefix+"/nodes/pve1/network", r.URL.Path)
		assert.Equal(t, "any_bridge", r.URL.Query().Get("type"))

		_, _ = w.Write([]byte(`{"data":[{"iface":"vmbr0","type":"bridge","comments":"LAN"}]}`))
	})

	bridges, err := client.Bridges(context.Background(), "pve1")
	require.NoError(t, err)

	assert.Equal(t, []models.NetworkBridge{{Name: "vmbr0", Type: "bridge", Comments: "LAN"}}, bridges)
}
