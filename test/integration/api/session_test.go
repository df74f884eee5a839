// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/pitchside/pitchside/internal/auth"
)

type apiError struct {
	Detail string `json:"detail"`
}

type apiUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func send(client *http.Client, method, path string, body any) (*http.Response, []byte) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, buf.Bytes()
}

func login(client *http.Client, email, password string) *http.Response {
	resp, _ := send(client, http.MethodPost, "/api/users/login",
		map[string]string{"email": email, "password": password})
	return resp
}

func detail(body []byte) string {
	var e apiError
	Expect(json.Unmarshal(body, &e)).To(Succeed())
	return e.Detail
}

var _ = Describe("Session login", func() {
	It("issues a cookie session that resolves to the user", func() {
		client := newClient()
		resp := login(client, "Secretary@Club.Example", seedPassword)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Cookies()).To(ContainElement(HaveField("Name", "session_id")))

		resp, body := send(client, http.MethodGet, "/api/users/me", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var me apiUser
		Expect(json.Unmarshal(body, &me)).To(Succeed())
		Expect(me.Email).To(Equal("secretary@club.example"))
		Expect(me.Role).To(Equal("admin"))
		Expect(string(body)).NotTo(ContainSubstring("password"))
	})

	It("does not reveal whether the email exists", func() {
		unknown, unknownBody := send(newClient(), http.MethodPost, "/api/users/login",
			map[string]string{"email": "nobody@club.example", "password": seedPassword})
		wrong, wrongBody := send(newClient(), http.MethodPost, "/api/users/login",
			map[string]string{"email": "coach@club.example", "password": "not-it"})

		Expect(unknown.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(wrong.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(detail(unknownBody)).To(Equal(auth.MsgInvalidCredentials))
		Expect(detail(wrongBody)).To(Equal(auth.MsgInvalidCredentials))
	})

	It("refuses inactive accounts", func() {
		resp, body := send(newClient(), http.MethodPost, "/api/users/login",
			map[string]string{"email": "former@club.example", "password": seedPassword})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(detail(body)).To(Equal(auth.MsgAccountInactive))
	})

	It("ends the session on logout", func() {
		client := newClient()
		Expect(login(client, "coach@club.example", seedPassword).StatusCode).To(Equal(http.StatusOK))

		resp, _ := send(client, http.MethodPost, "/api/users/logout", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, body := send(client, http.MethodGet, "/api/users/me", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(detail(body)).To(Equal(auth.MsgNoSession))
	})

	It("rejects unknown tokens", func() {
		req, err := http.NewRequestWithContext(env.ctx, http.MethodGet, env.server.URL+"/api/users/me", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Session not-a-real-token")
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})
})

var _ = Describe("Role gates", func() {
	var admin, viewer *http.Client

	BeforeEach(func() {
		admin = newClient()
		Expect(login(admin, "secretary@club.example", seedPassword).StatusCode).To(Equal(http.StatusOK))
		viewer = newClient()
		Expect(login(viewer, "coach@club.example", seedPassword).StatusCode).To(Equal(http.StatusOK))
	})

	It("lets any signed-in user list users", func() {
		resp, body := send(viewer, http.MethodGet, "/api/users/?limit=10", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var users []apiUser
		Expect(json.Unmarshal(body, &users)).To(Succeed())
		Expect(len(users)).To(BeNumerically(">=", 4))
	})

	It("keeps registration for admins", func() {
		newUser := map[string]string{
			"name":     "Kit Manager",
			"email":    "kit@club.example",
			"password": "shin-pads-99",
			"role":     "viewer",
		}

		resp, body := send(viewer, http.MethodPost, "/api/users/register", newUser)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(detail(body)).To(Equal(auth.MsgAdminRequired))

		resp, _ = send(admin, http.MethodPost, "/api/users/register", newUser)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, _ = send(admin, http.MethodPost, "/api/users/register", newUser)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		kit := newClient()
		Expect(login(kit, "kit@club.example", "shin-pads-99").StatusCode).To(Equal(http.StatusOK))
	})

	It("revokes sessions when an admin suspends a user", func() {
		target := newClient()
		Expect(login(target, "treasurer@club.example", seedPassword).StatusCode).To(Equal(http.StatusOK))

		resp, body := send(target, http.MethodGet, "/api/users/me", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var me apiUser
		Expect(json.Unmarshal(body, &me)).To(Succeed())

		resp, _ = send(admin, http.MethodPatch, "/api/users/"+me.ID+"/status?status=suspended", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, _ = send(target, http.MethodGet, "/api/users/me", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		resp, _ = send(admin, http.MethodPatch, "/api/users/"+me.ID+"/status?status=active", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("reports health with the database host only", func() {
		resp, body := send(newClient(), http.MethodGet, "/health", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).NotTo(ContainSubstring("pitchside:pitchside"))
	})
})
