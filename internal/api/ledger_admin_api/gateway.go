package ledger_admin_api

import (
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RegisterGateway maps LedgerAdmin onto mux under /admin/v1, forwarding each
// request through client.
func RegisterGateway(mux *runtime.ServeMux, client *Client) error {
	routes := []struct {
		method, path string
		call         func(r *http.Request, params map[string]string) (proto.Message, error)
	}{
		{http.MethodGet, "/admin/v1/routes/{route_id}/available-seats", func(r *http.Request, params map[string]string) (proto.Message, error) {
			return client.AvailableSeats(r.Context(), wrapperspb.String(params["route_id"]))
		}},
		{http.MethodPost, "/admin/v1/holds/expire", func(r *http.Request, _ map[string]string) (proto.Message, error) {
			return client.ExpireOverdue(r.Context(), &emptypb.Empty{})
		}},
		{http.MethodPost, "/admin/v1/payments/reconcile", func(r *http.Request, _ map[string]string) (proto.Message, error) {
			return client.Reconcile(r.Context(), &emptypb.Empty{})
		}},
	}

	for _, rt := range routes {
		call := rt.call
		err := mux.HandlePath(rt.method, rt.path, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			_, outbound := runtime.MarshalerForRequest(mux, r)
			resp, err := call(r, params)
			if err != nil {
				runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
				return
			}
			runtime.ForwardResponseMessage(r.Context(), mux, outbound, w, r, resp)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
