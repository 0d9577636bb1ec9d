package httptransport

// capturePage collects device signals in the respondent's browser and posts
// them to /api/capture together with the link token and the chat platform's
// integrity token. Hashes are truncated SHA-256 like the submission
// endpoint expects; failures set "error" so the matcher ignores the signal.
const capturePage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Verification</title>
    <script src="https://telegram.org/js/telegram-web-app.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--tg-theme-bg-color, #fff);
            color: var(--tg-theme-text-color, #000);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 20px;
        }
        .container { text-align: center; max-width: 320px; }
        .spinner {
            width: 50px;
            height: 50px;
            border: 4px solid var(--tg-theme-hint-color, #ccc);
            border-top-color: var(--tg-theme-button-color, #3390ec);
            border-radius: 50%;
            animation: spin 1s linear infinite;
            margin: 0 auto 20px;
        }
        @keyframes spin { to { transform: rotate(360deg); } }
        h2 { margin-bottom: 10px; font-size: 18px; }
        p { color: var(--tg-theme-hint-color, #999); font-size: 14px; }
        .success { color: #4caf50; }
        .error { color: #f44336; }
    </style>
</head>
<body>
    <div class="container">
        <div class="spinner" id="spinner"></div>
        <h2 id="status">Verifying...</h2>
        <p id="message">Please wait a moment</p>
    </div>

    <script>
        const tg = window.Telegram.WebApp;
        tg.ready();
        tg.expand();

        async function hashString(str) {
            const data = new TextEncoder().encode(str);
            const buf = await crypto.subtle.digest('SHA-256', data);
            return Array.from(new Uint8Array(buf))
                .map(b => b.toString(16).padStart(2, '0'))
                .join('')
                .substring(0, 32);
        }

        async function collectSignals() {
            const fp = {};
            fp.screen_resolution = screen.width + 'x' + screen.height;
            fp.timezone = Intl.DateTimeFormat().resolvedOptions().timeZone;
            fp.language = navigator.language;
            fp.platform = navigator.platform;
            fp.user_agent = navigator.userAgent;

            try {
                const canvas = document.createElement('canvas');
                const ctx = canvas.getContext('2d');
                canvas.width = 200;
                canvas.height = 50;
                ctx.textBaseline = 'top';
                ctx.font = '14px Arial';
                ctx.fillStyle = '#f60';
                ctx.fillRect(125, 1, 62, 20);
                ctx.fillStyle = '#069';
                ctx.fillText('intake,check <canvas> 1.0', 2, 15);
                fp.canvas_hash = await hashString(canvas.toDataURL());
            } catch (e) {
                fp.canvas_hash = 'error';
            }

            try {
                const canvas = document.createElement('canvas');
                const gl = canvas.getContext('webgl') || canvas.getContext('experimental-webgl');
                if (gl) {
                    const dbg = gl.getExtension('WEBGL_debug_renderer_info');
                    const vendor = gl.getParameter(dbg ? dbg.UNMASKED_VENDOR_WEBGL : gl.VENDOR);
                    const renderer = gl.getParameter(dbg ? dbg.UNMASKED_RENDERER_WEBGL : gl.RENDERER);
                    fp.webgl_hash = await hashString(vendor + renderer);
                }
            } catch (e) {
                fp.webgl_hash = 'error';
            }

            try {
                const fonts = ['Arial', 'Verdana', 'Times New Roman', 'Courier New',
                    'Georgia', 'Comic Sans MS', 'Trebuchet MS', 'Impact'];
                const detected = fonts.filter(f => document.fonts.check('12px "' + f + '"'));
                fp.fonts_hash = await hashString(detected.join(','));
            } catch (e) {
                fp.fonts_hash = 'error';
            }

            return fp;
        }

        async function submit() {
            try {
                const payload = await collectSignals();
                const token = new URLSearchParams(location.search).get('token') || '';

                const response = await fetch('/api/capture', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/json' },
                    body: JSON.stringify({
                        token: token,
                        init_data: tg.initData || '',
                        payload: payload
                    })
                });
                const result = await response.json();
                if (!result.success) {
                    throw new Error(result.error || 'verification failed');
                }

                document.getElementById('spinner').style.display = 'none';
                document.getElementById('status').textContent = 'Verified';
                document.getElementById('status').className = 'success';
                document.getElementById('message').textContent =
                    'Tap Continue to start the questionnaire';

                const verdict = JSON.stringify({
                    verified: result.verified,
                    fingerprint_id: result.fingerprint_id
                });
                tg.MainButton.setText('Continue');
                tg.MainButton.show();
                tg.MainButton.onClick(() => {
                    try {
                        tg.sendData(verdict);
                        tg.close();
                    } catch (e) {
                        setTimeout(() => { tg.sendData(verdict); tg.close(); }, 500);
                    }
                });
            } catch (e) {
                document.getElementById('spinner').style.display = 'none';
                document.getElementById('status').textContent = 'Error';
                document.getElementById('status').className = 'error';
                document.getElementById('message').textContent = e.message;
            }
        }

        submit();
    </script>
</body>
</html>`
