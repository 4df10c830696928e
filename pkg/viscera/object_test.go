package viscera

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/gomaas/pkg/bones"
	"github.com/canonical/gomaas/pkg/bones/bonestest"
)

func init() {
	// A type without key fields, to exercise the partial-load guard.
	Register(TypeSpec{
		Name:   "KeylessSample",
		Fields: []FieldSpec{{Name: "value"}},
	})
}

func testOrigin(t *testing.T, server *bonestest.Server) *Origin {
	t.Helper()
	session, err := bones.FromURL(
		context.Background(), server.URL(), "consumer:token:secret")
	require.NoError(t, err)
	return NewOrigin(session)
}

func TestOriginBindsRegisteredTypes(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	machine, err := origin.Type("Machine")
	require.NoError(t, err)
	assert.True(t, machine.Bound())

	// Zones are registered but absent from this server's description.
	zone, err := origin.Type("Zone")
	require.NoError(t, err)
	assert.False(t, zone.Bound())

	_, err = origin.Type("Teapot")
	assert.Error(t, err)
}

func TestSetRead(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	server.AddMachine(map[string]any{"hostname": "web01"})
	server.AddMachine(map[string]any{"hostname": "web02"})
	origin := testOrigin(t, server)

	machines, err := origin.Set("Machines")
	require.NoError(t, err)
	listed, err := machines.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, listed.Len())

	hostname, err := listed.Item(0).Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "web01", hostname)
	assert.True(t, listed.Item(0).Loaded())
}

func TestPartialAndRefresh(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(map[string]any{"hostname": "web01"})
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Partial(map[string]any{"system_id": systemID})
	require.NoError(t, err)
	assert.False(t, machine.Loaded())

	id, err := machine.Get("system_id")
	require.NoError(t, err)
	assert.Equal(t, systemID, id)

	_, err = machine.Get("hostname")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotLoaded))

	require.NoError(t, machine.Refresh(context.Background()))
	assert.True(t, machine.Loaded())
	hostname, err := machine.Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "web01", hostname)
}

func TestPartialRequiresKeyFields(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	keyless, err := origin.Type("KeylessSample")
	require.NoError(t, err)
	_, err = keyless.Partial(map[string]any{"value": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key fields")

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	_, err = machineType.Partial(map[string]any{"hostname": "web01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a key field")
}

func TestTypeRead(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(map[string]any{"hostname": "db01"})
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)
	assert.True(t, machine.Loaded())

	status, err := machine.Get("status")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, "Ready", status.(NodeStatus).String())
}

func TestGetDefaultAndReadOnly(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(nil)
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)

	// power_state is absent from the stored document.
	state, err := machine.Get("power_state")
	require.NoError(t, err)
	assert.Equal(t, "unknown", state)

	err = machine.Set("status_name", "Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	_, err = machine.Get("flavour")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no field "flavour"`)
}

func TestSaveCleanObjectMakesNoRequest(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(nil)
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)

	server.LastRequest = nil
	require.NoError(t, machine.Save(context.Background()))
	assert.Nil(t, server.LastRequest)
}

func TestSaveRevertedFieldMakesNoRequest(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(map[string]any{"hostname": "web01"})
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)

	require.NoError(t, machine.Set("hostname", "renamed"))
	require.True(t, machine.Dirty())
	require.NoError(t, machine.Set("hostname", "web01"))
	require.False(t, machine.Dirty())

	server.LastRequest = nil
	require.NoError(t, machine.Save(context.Background()))
	assert.Nil(t, server.LastRequest)
}

func TestSaveUpdatesAndCommits(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(map[string]any{"hostname": "web01"})
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)

	require.NoError(t, machine.Set("hostname", "renamed"))
	require.NoError(t, machine.Save(context.Background()))
	assert.False(t, machine.Dirty())
	assert.Equal(t, http.MethodPut, server.LastRequest.Method)

	hostname, err := machine.Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "renamed", hostname)

	fresh, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)
	hostname, err = fresh.Get("hostname")
	require.NoError(t, err)
	assert.Equal(t, "renamed", hostname)
}

func TestSaveListOps(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(map[string]any{"tag_names": []string{"web"}})
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Read(
		context.Background(), map[string]any{"system_id": systemID})
	require.NoError(t, err)

	require.NoError(t, machine.Set("tags", []string{"web", "staging"}))
	require.NoError(t, machine.Save(context.Background()))
	assert.False(t, machine.Dirty())

	require.NoError(t, machine.Refresh(context.Background()))
	tags, err := machine.Get("tags")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web", "staging"}, tags)

	require.NoError(t, machine.Set("tags", []string{"staging"}))
	require.NoError(t, machine.Save(context.Background()))
	require.NoError(t, machine.Refresh(context.Background()))
	tags, err = machine.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"staging"}, tags)
}

func TestDelete(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(nil)
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Partial(map[string]any{"system_id": systemID})
	require.NoError(t, err)
	require.NoError(t, machine.Delete(context.Background()))

	err = machine.Refresh(context.Background())
	require.Error(t, err)
	var callErr *bones.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, http.StatusNotFound, callErr.Status())
}

func TestPendingOperationGuard(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	systemID := server.AddMachine(nil)
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine, err := machineType.Partial(map[string]any{"system_id": systemID})
	require.NoError(t, err)

	machine.pending.Store(true)
	err = machine.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrPendingOperation))
	require.NoError(t, machine.Set("hostname", "x"))
	err = machine.Save(context.Background())
	assert.True(t, errors.Is(err, ErrPendingOperation))
	err = machine.Delete(context.Background())
	assert.True(t, errors.Is(err, ErrPendingOperation))
}

func TestUnboundTypeRejectsRemoteOps(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	zoneType, err := origin.Type("Zone")
	require.NoError(t, err)
	zone, err := zoneType.Partial(map[string]any{"name": "default"})
	require.NoError(t, err)

	err = zone.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrUnbound))
}

func TestRelatedField(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	machine := machineType.New(map[string]any{
		"system_id": "abc123",
		"zone":      map[string]any{"id": float64(1), "name": "default"},
	})

	value, err := machine.Get("zone")
	require.NoError(t, err)
	zone, ok := value.(*Object)
	require.True(t, ok)
	assert.Equal(t, "Zone", zone.Type().Name())

	name, err := zone.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestRelatedSetBackPopulates(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	fabricType, err := origin.Type("Fabric")
	require.NoError(t, err)
	fabric := fabricType.New(map[string]any{
		"id":   float64(0),
		"name": "fabric-0",
		"vlans": []any{
			map[string]any{"id": float64(5001), "vid": float64(0)},
			map[string]any{"id": float64(5002), "vid": float64(10)},
		},
	})

	value, err := fabric.Get("vlans")
	require.NoError(t, err)
	vlans, ok := value.(*ObjectSet)
	require.True(t, ok)
	require.Equal(t, 2, vlans.Len())
	assert.Equal(t, "VLANs", vlans.Set().Name())

	parent, err := vlans.Item(0).Get("fabric")
	require.NoError(t, err)
	assert.Same(t, fabric, parent)
}

func TestObjectEqual(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	machineType, err := origin.Type("Machine")
	require.NoError(t, err)
	zoneType, err := origin.Type("Zone")
	require.NoError(t, err)

	a := machineType.New(map[string]any{"system_id": "abc123"})
	b := machineType.New(map[string]any{"system_id": "abc123"})
	c := machineType.New(map[string]any{"system_id": "zzz999"})
	z := zoneType.New(map[string]any{"system_id": "abc123"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(z))
	assert.False(t, a.Equal(nil))

	require.NoError(t, b.Set("hostname", "staged"))
	assert.False(t, a.Equal(b))
}

func TestObjectSetOperations(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	server.AddMachine(map[string]any{"hostname": "m1"})
	server.AddMachine(map[string]any{"hostname": "m2"})
	server.AddMachine(map[string]any{"hostname": "m3"})
	origin := testOrigin(t, server)

	machines, err := origin.Set("Machines")
	require.NoError(t, err)
	listed, err := machines.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, listed.Len())

	sliced := listed.Slice(0, 2)
	assert.Equal(t, 2, sliced.Len())
	assert.Same(t, listed.Set(), sliced.Set())

	reversed := listed.Reversed()
	assert.True(t, reversed.Item(0).Equal(listed.Item(2)))
	assert.Same(t, listed.Set(), reversed.Set())

	assert.True(t, listed.Contains(listed.Item(1)))
	assert.True(t, listed.Slice(0, 3).Equal(listed))
	assert.False(t, sliced.Equal(listed))
}

func TestReadVersion(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	origin := testOrigin(t, server)

	version, err := ReadVersion(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version.Version.Major())
	assert.Equal(t, "stable", version.Subversion)
	assert.True(t, version.HasCapability("authenticate-api"))
	assert.False(t, version.HasCapability("time-travel"))
}
