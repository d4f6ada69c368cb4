package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>CO2 Emissions Dashboard</title>
  <style>
    :root {
      --bg: #212529;
      --panel: #2b3035;
      --text: #ffffff;
      --muted: #adb5bd;
      --line: #495057;
      --bad: #f1aeb5;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
    }

    header h4 { margin: 15px; padding-top: 15px; font-size: 20px; }
    header h5 { margin: 15px; font-size: 15px; font-weight: 400; }

    .controls {
      display: flex;
      flex-wrap: wrap;
      gap: 24px;
      align-items: center;
      margin: 15px;
    }
    .controls label { margin-right: 15px; }
    .controls select {
      background: var(--panel);
      color: var(--text);
      border: 1px solid var(--line);
      padding: 4px 8px;
      min-width: 120px;
    }
    .radio label { margin-right: 12px; }

    .kpis {
      display: flex;
      flex-wrap: wrap;
      gap: 12px;
      margin: 0 15px 15px;
    }
    .kpi {
      background: var(--panel);
      border: 1px solid var(--line);
      padding: 8px 12px;
      min-width: 160px;
    }
    .kpi .label { color: var(--muted); font-size: 12px; }
    .kpi .value { font-size: 18px; font-weight: 600; }

    .map { width: 100%; height: 520px; display: block; border: 0; }
    .row { display: flex; width: 100%; }
    .row iframe { width: 50%; height: 520px; border: 0; }

    .toolbar { margin: 0 15px 15px; display: flex; gap: 10px; align-items: center; }
    .toolbar button, .toolbar a {
      background: var(--panel);
      color: var(--text);
      border: 1px solid var(--line);
      padding: 4px 10px;
      cursor: pointer;
      text-decoration: none;
      font-size: 13px;
    }
    #status { color: var(--muted); font-size: 12px; }
    #status.error { color: var(--bad); }

    @media (max-width: 900px) {
      .row { flex-direction: column; }
      .row iframe { width: 100%; }
    }
  </style>
</head>
<body>
  <header>
    <h4>Carbon Dioxide (CO2) Emissions By Year</h4>
    <h5>Track carbon dioxide (CO2) emissions for the chosen year from 1990 to 2022 and its most significant contributors.</h5>
  </header>

  <div class="controls">
    <div>
      <label for="year">Select Year</label>
      <select id="year"></select>
    </div>
    <div class="radio" id="metric">
      <span>Select Data Type for the World Map</span>
    </div>
  </div>

  <div class="kpis" id="kpis"></div>

  <div class="toolbar">
    <button id="snapshot" type="button">Save snapshot</button>
    <a id="csv" href="/api/v1/emissions?format=csv">Download CSV</a>
    <span id="status"></span>
  </div>

  <iframe class="map" id="world-map" title="World map"></iframe>
  <div class="row">
    <iframe id="fuel-bar" title="Top emitters by fuel"></iframe>
    <iframe id="fuel-area" title="Emissions by fuel over time"></iframe>
  </div>

  <script>
    const state = { year: null, metric: 'total', ws: null };
    const statusEl = document.getElementById('status');

    function setStatus(text, isError) {
      statusEl.textContent = text || '';
      statusEl.className = isError ? 'error' : '';
    }

    function fmt(v, digits) {
      if (v === null || v === undefined) return 'n/a';
      return Number(v).toLocaleString(undefined, { maximumFractionDigits: digits === undefined ? 2 : digits });
    }

    function query() {
      return '?year=' + encodeURIComponent(state.year) + '&metric=' + encodeURIComponent(state.metric);
    }

    function refreshCharts() {
      const q = query();
      ['world-map', 'fuel-bar', 'fuel-area'].forEach(function (name) {
        document.getElementById(name).src = '/charts/' + name + q;
      });
      document.getElementById('csv').href = '/api/v1/emissions?format=csv&year=' + encodeURIComponent(state.year);
    }

    function renderSummary(summary) {
      const s = summary.stats || {};
      const top = (summary.top_emitters || [])[0];
      const cards = [
        ['Countries', fmt(summary.countries, 0)],
        ['Sum (' + s.metric + ')', fmt(s.sum)],
        ['Mean', fmt(s.mean)],
        ['Median', fmt(s.median)],
        ['Max', s.max_country ? s.max_country + ' ' + fmt(s.max) : 'n/a'],
        ['Top emitter', top ? top.country + ' ' + fmt(top.total) : 'n/a']
      ];
      const kpis = document.getElementById('kpis');
      kpis.replaceChildren();
      cards.forEach(function (c) {
        const card = document.createElement('div');
        card.className = 'kpi';
        const label = document.createElement('div');
        label.className = 'label';
        label.textContent = c[0];
        const value = document.createElement('div');
        value.className = 'value';
        value.textContent = c[1];
        card.append(label, value);
        kpis.appendChild(card);
      });
    }

    function send() {
      refreshCharts();
      if (state.ws && state.ws.readyState === WebSocket.OPEN) {
        state.ws.send(JSON.stringify({ year: Number(state.year), metric: state.metric }));
        return;
      }
      fetch('/api/v1/summary' + query())
        .then(function (r) { return r.json(); })
        .then(function (body) {
          if (body.error) { setStatus(body.error, true); return; }
          renderSummary(body.data);
        })
        .catch(function (err) { setStatus(String(err), true); });
    }

    function connect() {
      const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
      const ws = new WebSocket(proto + location.host + '/ws');
      ws.onopen = function () { state.ws = ws; send(); };
      ws.onmessage = function (ev) {
        const msg = JSON.parse(ev.data);
        if (msg.type === 'update') {
          setStatus('');
          renderSummary(msg.data.summary);
        } else if (msg.type === 'reloaded') {
          setStatus('dataset reloaded');
          loadOptions();
        } else if (msg.type === 'error') {
          setStatus(msg.error, true);
        }
      };
      ws.onclose = function () {
        state.ws = null;
        setTimeout(connect, 3000);
      };
    }

    function loadOptions() {
      return fetch('/api/v1/options')
        .then(function (r) { return r.json(); })
        .then(function (body) {
          if (body.error) { setStatus(body.error, true); return; }
          const opts = body.data;
          if (state.year === null) {
            state.year = opts.default.year;
            state.metric = opts.default.metric;
          }
          const select = document.getElementById('year');
          select.innerHTML = opts.years.map(function (o) {
            return '<option value="' + o.value + '"' + (o.value === Number(state.year) ? ' selected' : '') + '>' + o.label + '</option>';
          }).join('');

          const metric = document.getElementById('metric');
          metric.querySelectorAll('label').forEach(function (el) { el.remove(); });
          opts.metrics.forEach(function (o) {
            const label = document.createElement('label');
            label.innerHTML = '<input type="radio" name="metric" value="' + o.value + '"' +
              (o.value === state.metric ? ' checked' : '') + '> ' + o.label;
            metric.appendChild(label);
          });
          send();
        })
        .catch(function (err) { setStatus(String(err), true); });
    }

    document.getElementById('year').addEventListener('change', function (ev) {
      state.year = ev.target.value;
      send();
    });
    document.getElementById('metric').addEventListener('change', function (ev) {
      if (ev.target.name === 'metric') {
        state.metric = ev.target.value;
        send();
      }
    });
    document.getElementById('snapshot').addEventListener('click', function () {
      fetch('/api/v1/snapshots' + query(), { method: 'POST' })
        .then(function (r) { return r.json(); })
        .then(function (body) {
          if (body.error) { setStatus(body.error, true); return; }
          setStatus('snapshot saved: ' + body.data.name);
        })
        .catch(function (err) { setStatus(String(err), true); });
    });

    loadOptions().then(connect);
  </script>
</body>
</html>
`
